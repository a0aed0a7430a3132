package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAddEscrowIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(EscrowAmount.WithLabelValues("released"))
	AddEscrow("released", 0)
	AddEscrow("released", -5)
	assert.Equal(t, before, testutil.ToFloat64(EscrowAmount.WithLabelValues("released")))

	AddEscrow("released", 300)
	assert.Equal(t, before+300, testutil.ToFloat64(EscrowAmount.WithLabelValues("released")))
}

func TestIncrementContractTransition(t *testing.T) {
	before := testutil.ToFloat64(ContractTransitionCount.WithLabelValues("activated"))
	IncrementContractTransition("activated")
	assert.Equal(t, before+1, testutil.ToFloat64(ContractTransitionCount.WithLabelValues("activated")))
}
