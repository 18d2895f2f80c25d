/*
Package pgadapter provides an implementation of the
Adapter interface in the sqldataset package that works
over a PostgreSQL database.
*/
package pgadapter

import (
	"database/sql"
	"fmt"

	"github.com/pbanos/forestry/dataset/sqldataset"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
)

// Dialect is the SQL dialect spoken by PostgreSQL databases.
var Dialect = sqldataset.Dialect{
	Placeholder: func(i int) string { return fmt.Sprintf("$%d", i+1) },
	RealType:    "DOUBLE PRECISION",
	TextType:    "TEXT",
}

/*
New takes a PostgreSQL database connection URL and returns
an Adapter that works on the database or an error if it fails to connect to it.
*/
func New(url string) (sqldataset.Adapter, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	return sqldataset.NewAdapter(db, Dialect), nil
}
