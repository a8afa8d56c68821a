package simple

// Customer is loaded by the package loader tests.
type Customer struct {
	Name string
}
