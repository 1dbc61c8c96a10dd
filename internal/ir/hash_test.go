package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterSpec() *NetworkSpec {
	return &NetworkSpec{
		Name: "counter",
		Nodes: []NodeSpec{
			{Name: "click", Op: OpSource, Type: TypeUnit},
			{Name: "count", Op: OpCount, Input: "click"},
		},
	}
}

func TestHashWithDomain_Separates(t *testing.T) {
	data := []byte(`{}`)

	assert.NotEqual(t, hashWithDomain(DomainSpec, data), hashWithDomain(DomainPass, data))
	assert.Len(t, hashWithDomain(DomainSpec, data), 64)
}

func TestSpecHash_Stable(t *testing.T) {
	h1, err := SpecHash(counterSpec())
	require.NoError(t, err)
	h2, err := SpecHash(counterSpec())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)

	changed := counterSpec()
	changed.Nodes[1].Lazy = true
	h3, err := SpecHash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestPassHash(t *testing.T) {
	doc := IRObject{"source": IRString("click"), "input": IRNull{}}

	h1, err := PassHash(doc)
	require.NoError(t, err)
	h2, err := PassHash(IRObject{"input": IRNull{}, "source": IRString("click")})
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "key order does not matter")
}
