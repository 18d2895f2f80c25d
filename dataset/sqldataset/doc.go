/*
Package sqldataset reads datasets from and writes datasets to SQL
database tables.

A dataset table holds a REAL column per feature and a TEXT column
with the class name of every sample. Access to the database goes
through an Adapter, so the same loader works with every database
for which an adapter package exists (see the sqlite3adapter and
pgadapter subpackages).
*/
package sqldataset
