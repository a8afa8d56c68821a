package partialgen_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/partialgen"
)

func TestNilPropertyError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := partialgen.NewNilPropertyError("Customer", "Email")
		assert.Equal(t, "partialgen: property Customer.Email is nil and the destination is not nullable", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := partialgen.NewNilPropertyError("Customer", "Email")
		assert.True(t, errors.Is(err, partialgen.ErrNilProperty))
	})

	t.Run("IsNilProperty", func(t *testing.T) {
		err := partialgen.NewNilPropertyError("Customer", "Email")
		assert.True(t, partialgen.IsNilProperty(err))

		// Wrapped error
		wrapped := fmt.Errorf("map: %w", err)
		assert.True(t, partialgen.IsNilProperty(wrapped))

		// Sentinel error
		assert.True(t, partialgen.IsNilProperty(partialgen.ErrNilProperty))

		assert.False(t, partialgen.IsNilProperty(errors.New("other error")))
		assert.False(t, partialgen.IsNilProperty(nil))
	})
}

func TestPropertyTypeError(t *testing.T) {
	err := &partialgen.PropertyTypeError{Property: "Age", Want: "int", Got: "string"}
	assert.Equal(t, `partialgen: property "Age" holds string, not int`, err.Error())
}
