package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_PathLayout(t *testing.T) {
	s := New("/data")
	path := s.Path(KindOriginal, "abcdef0123456789", "jpg")
	assert.Equal(t, "/data/original/ab/cd/abcdef0123456789.jpg", path)
}

func TestStorage_WriteThenOpenRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	hash := "0011223344556677889900112233445566778899001122334455667788990a"
	path, err := s.Write(KindOriginal, hash, "jpg", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.True(t, s.Exists(KindOriginal, hash, "jpg"))

	f, err := s.Open(KindOriginal, hash, "jpg")
	require.NoError(t, err)
	defer f.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestStorage_WriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	hash := "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778a"

	_, err := s.Write(KindOriginal, hash, "jpg", strings.NewReader("first"))
	require.NoError(t, err)

	path, err := s.Write(KindOriginal, hash, "jpg", strings.NewReader("second, should be ignored"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}
