// Package querysql renders queryir predicates as parameterized SQL WHERE
// fragments for a specific database dialect.
//
// Every literal and every JSON key path becomes a bound parameter. The SQL
// text of a Fragment contains only column names, operators, function calls
// and placeholders, so no user input can change the statement's structure.
package querysql
