/*
Package redisstore implements a tree.ModelStore that keeps fitted
models encoded under keys of a redis database.
*/
package redisstore

import (
	"context"
	"fmt"

	"github.com/pbanos/forestry/tree"
	"gopkg.in/redis.v5"
)

const idLength = 20

/*
ModelEncodeDecoder is an interface for objects
that allow encoding models into slices of
bytes and decoding them back to models.
*/
type ModelEncodeDecoder interface {

	//Encode receives a *tree.Model
	//and returns a slice of bytes with the model
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*tree.Model) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *tree.Model decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*tree.Model, error)
}

type redisStore struct {
	rc      *redis.Client
	prefix  string
	mencdec ModelEncodeDecoder
}

//New builds a tree.ModelStore backed by a redis DB
func New(rc *redis.Client, prefix string, mencdec ModelEncodeDecoder) tree.ModelStore {
	return &redisStore{rc, prefix, mencdec}
}

func (rs *redisStore) Create(ctx context.Context, m *tree.Model) (string, error) {
	data, err := rs.mencdec.Encode(m)
	if err != nil {
		return "", fmt.Errorf("creating model: encoding model: %v", err)
	}
	for {
		id := randString(idLength)
		ok, err := rs.rc.SetNX(rs.keyFor(id), data, 0).Result()
		if err != nil {
			return "", fmt.Errorf("creating model in redis: %v", err)
		}
		if ok {
			return id, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
}

func (rs *redisStore) Get(ctx context.Context, id string) (*tree.Model, error) {
	data, err := rs.rc.Get(rs.keyFor(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving model %q: %v", id, err)
	}
	m, err := rs.mencdec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("retrieving model %q: decoding: %v", id, err)
	}
	return m, nil
}

func (rs *redisStore) Store(ctx context.Context, id string, m *tree.Model) error {
	redisID := rs.keyFor(id)
	data, err := rs.mencdec.Encode(m)
	if err != nil {
		return fmt.Errorf("storing model %q: encoding model: %v", redisID, err)
	}
	_, err = rs.rc.Set(redisID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("storing model %q in redis: %v", redisID, err)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, id string) error {
	redisID := rs.keyFor(id)
	_, err := rs.rc.Del(redisID).Result()
	if err != nil {
		return fmt.Errorf("deleting model %q from redis: %v", redisID, err)
	}
	return nil
}

func (rs *redisStore) Close(ctx context.Context) error {
	return rs.rc.Close()
}

func (rs *redisStore) keyFor(id string) string {
	if rs.prefix == "" {
		return id
	}
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}
