package sqldataset

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MaxSampleInsertionsPerStatement is the maximum number of samples
// added with a single insert command by AddSamples. Adding more
// results in several insertion commands.
const MaxSampleInsertionsPerStatement = 10

/*
Adapter is an interface providing the methods needed to read and
write datasets on a database table.
*/
type Adapter interface {
	ColumnName(string) (string, error)
	CreateSampleTable(ctx context.Context, table string, featureColumns []string, labelColumn string) error
	AddSamples(ctx context.Context, table string, featureColumns []string, labelColumn string, values [][]float64, classes []string) (int, error)
	IterateOnSamples(ctx context.Context, table string, featureColumns []string, labelColumn string, lambda func(int, []float64, string) (bool, error)) error
	Close() error
}

/*
Dialect describes what differs between the databases an adapter
talks to: the name of the i-th (0-based) statement placeholder and
the column types for feature values and class names.
*/
type Dialect struct {
	Placeholder func(int) string
	RealType    string
	TextType    string
}

type adapter struct {
	db      *sql.DB
	dialect Dialect
}

/*
NewAdapter takes an open database handle and the dialect it speaks
and returns an Adapter on it. Closing the adapter closes the handle.
*/
func NewAdapter(db *sql.DB, dialect Dialect) Adapter {
	return &adapter{db, dialect}
}

func (a *adapter) ColumnName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty column name")
	}
	if strings.ContainsAny(name, `"`) {
		return "", fmt.Errorf(`column name '%s' contains invalid character '"'`, name)
	}
	return name, nil
}

func (a *adapter) CreateSampleTable(ctx context.Context, table string, featureColumns []string, labelColumn string) error {
	var createStmtBuf bytes.Buffer
	createStmtBuf.WriteString(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (`, table))
	for _, c := range featureColumns {
		createStmtBuf.WriteString(fmt.Sprintf(`"%s" %s NOT NULL, `, c, a.dialect.RealType))
	}
	createStmtBuf.WriteString(fmt.Sprintf(`"%s" %s NOT NULL)`, labelColumn, a.dialect.TextType))
	_, err := a.db.ExecContext(ctx, createStmtBuf.String())
	if err != nil {
		return fmt.Errorf("ensuring table %s exists: %v", table, err)
	}
	return nil
}

func (a *adapter) AddSamples(ctx context.Context, table string, featureColumns []string, labelColumn string, values [][]float64, classes []string) (int, error) {
	if len(values) != len(classes) {
		return 0, fmt.Errorf("%d samples but %d class names", len(values), len(classes))
	}
	width := len(featureColumns) + 1
	var insertStmtStartBuffer bytes.Buffer
	insertStmtStartBuffer.WriteString(fmt.Sprintf(`INSERT INTO "%s" ("`, table))
	insertStmtStartBuffer.WriteString(strings.Join(append(append([]string{}, featureColumns...), labelColumn), `", "`))
	insertStmtStartBuffer.WriteString(`") VALUES `)
	insertStmtStart := insertStmtStartBuffer.String()
	added := 0
	for added < len(values) {
		end := added + MaxSampleInsertionsPerStatement
		if end > len(values) {
			end = len(values)
		}
		var insertStmtBuffer bytes.Buffer
		insertStmtBuffer.WriteString(insertStmtStart)
		args := make([]interface{}, 0, (end-added)*width)
		for i := added; i < end; i++ {
			if len(values[i]) != len(featureColumns) {
				return added, fmt.Errorf("sample %d has %d values, expected %d", i, len(values[i]), len(featureColumns))
			}
			if i > added {
				insertStmtBuffer.WriteString(", ")
			}
			insertStmtBuffer.WriteString("(")
			for j := 0; j < width; j++ {
				if j > 0 {
					insertStmtBuffer.WriteString(", ")
				}
				insertStmtBuffer.WriteString(a.dialect.Placeholder(len(args) + j))
			}
			insertStmtBuffer.WriteString(")")
			for _, v := range values[i] {
				args = append(args, v)
			}
			args = append(args, classes[i])
		}
		_, err := a.db.ExecContext(ctx, insertStmtBuffer.String(), args...)
		if err != nil {
			return added, fmt.Errorf("inserting samples %d to %d: %v", added, end-1, err)
		}
		added = end
	}
	return added, nil
}

func (a *adapter) IterateOnSamples(ctx context.Context, table string, featureColumns []string, labelColumn string, lambda func(int, []float64, string) (bool, error)) error {
	var queryBuffer bytes.Buffer
	queryBuffer.WriteString(`SELECT "`)
	queryBuffer.WriteString(strings.Join(append(append([]string{}, featureColumns...), labelColumn), `", "`))
	queryBuffer.WriteString(fmt.Sprintf(`" FROM "%s"`, table))
	rows, err := a.db.QueryContext(ctx, queryBuffer.String())
	if err != nil {
		return err
	}
	defer rows.Close()
	for j := 0; rows.Next(); j++ {
		values := make([]float64, len(featureColumns))
		var class string
		dst := make([]interface{}, 0, len(featureColumns)+1)
		for i := range values {
			dst = append(dst, &values[i])
		}
		dst = append(dst, &class)
		err = rows.Scan(dst...)
		if err != nil {
			return fmt.Errorf("scanning row %d: %v", j, err)
		}
		ok, err := lambda(j, values, class)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	err = rows.Err()
	if err != nil {
		return err
	}
	return rows.Close()
}

func (a *adapter) Close() error {
	return a.db.Close()
}
