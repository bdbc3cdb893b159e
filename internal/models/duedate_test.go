package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/cybertodo/internal/apperr"
)

func TestParseDueDate_Layouts(t *testing.T) {
	want := time.Date(2077, 12, 31, 23, 59, 0, 0, time.UTC)

	for _, in := range []string{
		"2077-12-31 23:59",
		"2077-12-31T23:59",
		"2077-12-31T23:59:00",
		"2077-12-31T23:59:00Z",
		"2078-01-01T01:59:00+02:00",
	} {
		got, err := ParseDueDate(in)
		require.NoError(t, err, in)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	got, err := ParseDueDate("2077-12-31 23:59:30")
	require.NoError(t, err)
	assert.True(t, time.Date(2077, 12, 31, 23, 59, 30, 0, time.UTC).Equal(*got), got)

	got, err = ParseDueDate("2077-12-31")
	require.NoError(t, err)
	assert.True(t, time.Date(2077, 12, 31, 0, 0, 0, 0, time.UTC).Equal(*got), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseDueDate_Empty(t *testing.T) {
	got, err := ParseDueDate("   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseDueDate_RejectsOtherFormats(t *testing.T) {
	for _, in := range []string{"31/12/2077 23:59", "tomorrow", "2077-13-01 00:00"} {
		_, err := ParseDueDate(in)
		require.Error(t, err, in)
		assert.True(t, apperr.Is(err, apperr.KindFormat), in)
	}
}

func TestParseDueDate_ErrorListsLayouts(t *testing.T) {
	_, err := ParseDueDate("31/12/2077 23:59")
	require.Error(t, err)
	assert.Equal(t,
		"Invalid due_date format. Use one of: YYYY-MM-DD HH:MM, YYYY-MM-DDTHH:MM, YYYY-MM-DDTHH:MM:SS, RFC 3339, YYYY-MM-DD HH:MM:SS, YYYY-MM-DD.",
		apperr.BodyOf(err).Message)
}

func TestFormatDueDate(t *testing.T) {
	assert.Equal(t, "", FormatDueDate(nil))

	due := time.Date(2077, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2077-12-31 23:59", FormatDueDate(&due))
}
