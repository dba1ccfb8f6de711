package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeStation(t *testing.T) {
	data, err := EncodePayload(StationPayload("2000000", "Москва"), 64)
	require.NoError(t, err)
	assert.Equal(t, "\fst|2000000|Москва", data)

	p, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, StationPayload("2000000", "Москва"), p)
}

func TestEncodeSanitisesAndTruncatesName(t *testing.T) {
	data, err := EncodePayload(StationPayload("2000000", "Моск|ва\n"), 64)
	require.NoError(t, err)
	assert.Equal(t, "\fst|2000000|Москва", data)

	long := strings.Repeat("я", 40)
	data, err = EncodePayload(TrainPayload("001", long), 200)
	require.NoError(t, err)
	p, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("я", 30), p.Name)
}

func TestEncodeDropsNameOverLimit(t *testing.T) {
	// 30 Cyrillic runes are 60 bytes, so the name cannot fit in 64.
	data, err := EncodePayload(StationPayload("2000000", strings.Repeat("Ж", 30)), 64)
	require.NoError(t, err)
	assert.Equal(t, "\fst|2000000", data)
	assert.LessOrEqual(t, len(data), 64)

	p, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Empty(t, p.Name)
	assert.Equal(t, "2000000", p.Code)
}

func TestEncodeRejects(t *testing.T) {
	_, err := EncodePayload(Payload{Tag: "zz"}, 64)
	assert.ErrorIs(t, err, ErrBadPayload)
	_, err = EncodePayload(StationPayload("", "x"), 64)
	assert.ErrorIs(t, err, ErrBadPayload)
	_, err = EncodePayload(DisablePayload(0), 64)
	assert.ErrorIs(t, err, ErrBadPayload)
	_, err = EncodePayload(StationPayload(strings.Repeat("9", 80), ""), 64)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestFixedAndIDPayloads(t *testing.T) {
	assert.Equal(t, "\fany", MustEncode(AnyTrainPayload()))
	assert.Equal(t, "\fsub", MustEncode(SubscribePayload()))
	assert.Equal(t, "\foff|17", MustEncode(DisablePayload(17)))

	p, err := DecodePayload("\fon|17")
	require.NoError(t, err)
	assert.Equal(t, EnablePayload(17), p)
	p, err = DecodePayload("sub")
	require.NoError(t, err)
	assert.Equal(t, TagSubscribe, p.Tag)
}

func TestDecodeRejects(t *testing.T) {
	for _, data := range []string{"", "\f", "\fzz|1", "\fst", "\fst|", "\foff|abc", "\foff|-1", "\fany|x", "\fst|a|b|c"} {
		_, err := DecodePayload(data)
		assert.ErrorIs(t, err, ErrBadPayload, "%q", data)
	}
}
