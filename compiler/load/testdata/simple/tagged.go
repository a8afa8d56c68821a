//go:build integration

package simple

type Tagged struct{}
