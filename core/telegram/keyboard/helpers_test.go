package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRows(t *testing.T) {
	rm := InlineButtonsRows(
		[]InlineBtn{{Text: "A", Data: "\fst|1"}, {Text: "B", Data: "\fst|2"}},
		nil,
		[]InlineBtn{{Text: "C", Data: "\fany"}},
	)
	require.NotNil(t, rm)
	require.Len(t, rm.InlineKeyboard, 2)
	assert.Equal(t, "\fst|2", rm.InlineKeyboard[0][1].Data)
	assert.Equal(t, "C", rm.InlineKeyboard[1][0].Text)
}

func TestInlineButtonsRowsEmpty(t *testing.T) {
	assert.Nil(t, InlineButtonsRows())
	assert.Nil(t, InlineButtonsRows(nil, []InlineBtn{}))
}
