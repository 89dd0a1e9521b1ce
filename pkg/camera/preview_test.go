package camera

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jpegSource decodes the same image on every call.
type jpegSource struct {
	data []byte
	err  error
}

func (s *jpegSource) NextFrame(context.Context) (Frame, error) {
	if s.err != nil {
		return Frame{}, s.err
	}
	return Decode(s.data)
}

func (s *jpegSource) Close() error { return nil }

func TestPreviewSource_ThrottlesPreviews(t *testing.T) {
	src := &jpegSource{data: encodeJPEG(t, 64, 48)}
	var sent [][]byte
	p := NewPreviewSource(src, time.Hour, func(b []byte) { sent = append(sent, b) })

	for i := 0; i < 3; i++ {
		frame, err := p.NextFrame(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 64, frame.Width())
		frame.Close()
	}

	require.Len(t, sent, 1)

	decoded, err := Decode(sent[0])
	require.NoError(t, err)
	defer decoded.Close()
	assert.Equal(t, 48, decoded.Height())
}

func TestPreviewSource_ZeroIntervalSendsEveryFrame(t *testing.T) {
	src := &jpegSource{data: encodeJPEG(t, 32, 32)}
	count := 0
	p := NewPreviewSource(src, 0, func([]byte) { count++ })

	for i := 0; i < 3; i++ {
		frame, err := p.NextFrame(context.Background())
		require.NoError(t, err)
		frame.Close()
	}
	assert.Equal(t, 3, count)
}

func TestPreviewSource_PassesErrorsThrough(t *testing.T) {
	src := &jpegSource{err: ErrNoFrame}
	called := false
	p := NewPreviewSource(src, 0, func([]byte) { called = true })

	_, err := p.NextFrame(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.False(t, called)
	assert.NoError(t, p.Close())
}
