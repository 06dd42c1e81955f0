package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	donationDate := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2026, time.March, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(donationDate, createdAt)
	require.NotEmpty(t, token)

	gotDate, gotCreated, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, gotDate.Equal(donationDate))
	assert.True(t, gotCreated.Equal(createdAt))
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	_, _, err := DecodeToken("not-base64!!!")
	assert.Error(t, err)

	// Valid base64 but no separator.
	noSep := base64.StdEncoding.EncodeToString([]byte("2026-03-15T00:00:00Z"))
	_, _, err = DecodeToken(noSep)
	assert.Error(t, err)

	// Separator present but unparseable timestamps.
	badTimes := base64.StdEncoding.EncodeToString([]byte("yesterday|tomorrow"))
	_, _, err = DecodeToken(badTimes)
	assert.Error(t, err)
}
