package checksum_test

import (
	"bytes"
	"strings"
	"testing"

	"release-portal/pkg/checksum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	data := []byte("release-portal 1.2.0 payload")

	first := checksum.Sum(data)
	second := checksum.Sum(data)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.Equal(t, strings.ToLower(first), first)
}

func TestSumEmpty(t *testing.T) {
	assert.Equal(t, checksum.Empty, checksum.Sum(nil))
	assert.Equal(t, checksum.Empty, checksum.Sum([]byte{}))

	// 流式结果与一次性结果一致
	sum, n, err := checksum.SumReader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, checksum.Empty, sum)
	assert.Equal(t, int64(0), n)
}

func TestSumReaderMatchesSum(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10000)

	sum, n, err := checksum.SumReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, checksum.Sum(data), sum)
	assert.Equal(t, int64(len(data)), n)
}

func TestKnownVector(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		checksum.Sum([]byte("abc")))
}
