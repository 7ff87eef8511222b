package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/domain"
	contract "github.com/aretw0/webflow/pkg/ports/tests"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	data := map[string]string{
		"booking": "id: booking",
		"payment": "id: payment",
	}

	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	contract.DefinitionLoaderContractTest(t, memory.NewLoader(data), bytesData)
}

func TestInMemoryLoader_OrderAndIsolation(t *testing.T) {
	src := map[string]string{"zeta": "id: zeta", "alpha": "id: alpha"}
	l := memory.NewLoader(src)
	src["alpha"] = "changed"

	ids, err := l.ListFlows()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)

	doc, err := l.GetFlow("alpha")
	require.NoError(t, err)
	doc[0] = 'X'
	doc, err = l.GetFlow("alpha")
	require.NoError(t, err)
	assert.Equal(t, "id: alpha", string(doc))

	_, err = l.GetFlow("missing")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}
