package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
)

func TestNew(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)

	assert.Len(t, reg.Mechanisms(cartridge.KindVoting), 8)
	assert.Len(t, reg.Mechanisms(cartridge.KindGame), 2)
	assert.Len(t, reg.Mechanisms(cartridge.KindPrompt), 6)

	assert.Equal(t, "MAJORITY", reg.Default(cartridge.KindVoting))
	assert.Equal(t, "REALTIME_TRIVIA", reg.Default(cartridge.KindGame))
	assert.Equal(t, "PLAYER_PICK", reg.Default(cartridge.KindPrompt))
}
