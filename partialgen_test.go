package partialgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/partialgen"
)

type customer struct {
	partialgen.Base
}

type audited struct {
	partialgen.Base
}

type order struct {
	audited
}

func TestReadWrite(t *testing.T) {
	t.Run("unset property reads zero value", func(t *testing.T) {
		c := &customer{}
		assert.Equal(t, "", partialgen.Read[string](c, "Name"))
		assert.Nil(t, partialgen.Read[*string](c, "Email"))
		assert.False(t, c.Property("Name").IsSet())
	})

	t.Run("write marks modified", func(t *testing.T) {
		c := &customer{}
		partialgen.Write(c, "Name", "Ada")
		assert.Equal(t, "Ada", partialgen.Read[string](c, "Name"))
		assert.True(t, c.Property("Name").IsModified())
		assert.True(t, c.IsModified())
		assert.Equal(t, []string{"Name"}, c.Modified())
	})

	t.Run("promoted through embedding", func(t *testing.T) {
		o := &order{}
		partialgen.Write(o, "CreatedBy", "system")
		assert.Equal(t, "system", partialgen.Read[string](o, "CreatedBy"))
		assert.True(t, o.Property("CreatedBy").IsModified())
	})

	t.Run("typed nil pointer round trips", func(t *testing.T) {
		c := &customer{}
		partialgen.Write[*string](c, "Email", nil)
		assert.Nil(t, partialgen.Read[*string](c, "Email"))
		assert.True(t, c.Property("Email").IsSet())
	})

	t.Run("type mismatch panics", func(t *testing.T) {
		c := &customer{}
		partialgen.Write(c, "Age", "forty")
		assert.PanicsWithError(t, `partialgen: property "Age" holds string, not int`, func() {
			partialgen.Read[int](c, "Age")
		})
	})
}

func TestMarkClean(t *testing.T) {
	c := &customer{}
	partialgen.Write(c, "Name", "Ada")
	partialgen.Write(c, "Age", 36)
	c.MarkClean()
	assert.False(t, c.IsModified())
	assert.Empty(t, c.Modified())
	assert.Equal(t, 36, partialgen.Read[int](c, "Age"))
}

func TestLoadProperty(t *testing.T) {
	c := &customer{}
	c.LoadProperty("Name", "Grace")
	assert.Equal(t, "Grace", partialgen.Read[string](c, "Name"))
	assert.False(t, c.Property("Name").IsModified())
	assert.Equal(t, "Grace", c.Property("Name").Value())
}

func TestProperty(t *testing.T) {
	c := &customer{}
	p := c.Property("Missing")
	require.NotNil(t, p)
	assert.Equal(t, "Missing", p.Name())
	assert.False(t, p.IsModified())
	assert.Nil(t, p.Value())
}

func TestRequired(t *testing.T) {
	t.Run("non-nil passes through", func(t *testing.T) {
		s := "x"
		assert.Same(t, &s, partialgen.Required(&s, "Customer", "Email"))
	})

	t.Run("nil panics with named error", func(t *testing.T) {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			assert.True(t, partialgen.IsNilProperty(err))
			assert.Contains(t, err.Error(), "Customer.Email")
		}()
		partialgen.Required[string](nil, "Customer", "Email")
	})
}
