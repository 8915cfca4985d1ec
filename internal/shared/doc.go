// Package shared holds helpers used across packages that belong to no
// single layer.
//
// The testutil subpackage provides a capturing slog handler and small
// dataset fixtures for tests:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteFile(t, "cars.csv", testutil.CarsCSV)
//	    ...
//	}
package shared
