// Package collections persists the local business data of the garage
// (customers, vehicles, service records, ...) as one JSON document per
// collection.
//
// The repository does not look inside the documents. It only guarantees
// that what is stored is valid JSON, which the table enforces as well.
// SQLiteRepository works over a dbx.DBTX so that a whole restore can run in
// a single transaction.
package collections
