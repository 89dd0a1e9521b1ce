package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox_Contains(t *testing.T) {
	face := BoundingBox{X: 100, Y: 100, W: 200, H: 200}

	tests := []struct {
		name   string
		box    BoundingBox
		expect bool
	}{
		{"fully inside", BoundingBox{X: 120, Y: 140, W: 40, H: 30}, true},
		{"touching edges", BoundingBox{X: 100, Y: 100, W: 200, H: 200}, true},
		{"left edge outside", BoundingBox{X: 90, Y: 140, W: 40, H: 30}, false},
		{"bottom edge outside", BoundingBox{X: 120, Y: 280, W: 40, H: 30}, false},
		{"right edge outside", BoundingBox{X: 280, Y: 140, W: 40, H: 30}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, face.Contains(tc.box))
		})
	}
}

func TestBoundingBox_Within(t *testing.T) {
	assert.True(t, BoundingBox{X: 0, Y: 0, W: 640, H: 480}.Within(640, 480))
	assert.False(t, BoundingBox{X: 1, Y: 0, W: 640, H: 480}.Within(640, 480))
	assert.False(t, BoundingBox{X: 10, Y: 10, W: 0, H: 20}.Within(640, 480))
	assert.False(t, BoundingBox{X: -1, Y: 10, W: 10, H: 20}.Within(640, 480))
}

func TestBoundingBox_CenterX(t *testing.T) {
	assert.Equal(t, 120.0, BoundingBox{X: 100, W: 40, H: 1}.CenterX())
	assert.Equal(t, 20.5, BoundingBox{X: 10, W: 21, H: 1}.CenterX())
}

func TestSelectSingle(t *testing.T) {
	_, err := SelectSingle(nil)
	assert.ErrorIs(t, err, ErrNoFace)

	face := BoundingBox{X: 10, Y: 20, W: 100, H: 120}
	got, err := SelectSingle([]BoundingBox{face})
	require.NoError(t, err)
	assert.Equal(t, face, got)

	_, err = SelectSingle([]BoundingBox{face, {X: 300, Y: 20, W: 100, H: 120}})
	assert.ErrorIs(t, err, ErrAmbiguousFace)
}

func TestAssignEyes(t *testing.T) {
	face := BoundingBox{X: 100, Y: 100, W: 200, H: 200} // midpoint x=200

	tests := []struct {
		name        string
		eyes        []BoundingBox
		expectLeft  *BoundingBox
		expectRight *BoundingBox
	}{
		{
			name: "no eyes",
		},
		{
			name:       "one eye on the left",
			eyes:       []BoundingBox{{X: 130, Y: 150, W: 40, H: 40}},
			expectLeft: &BoundingBox{X: 130, Y: 150, W: 40, H: 40},
		},
		{
			name: "both eyes",
			eyes: []BoundingBox{
				{X: 230, Y: 150, W: 40, H: 40},
				{X: 130, Y: 150, W: 40, H: 40},
			},
			expectLeft:  &BoundingBox{X: 130, Y: 150, W: 40, H: 40},
			expectRight: &BoundingBox{X: 230, Y: 150, W: 40, H: 40},
		},
		{
			name: "eye outside the face is dropped",
			eyes: []BoundingBox{
				{X: 20, Y: 150, W: 40, H: 40},
				{X: 230, Y: 150, W: 40, H: 40},
			},
			expectRight: &BoundingBox{X: 230, Y: 150, W: 40, H: 40},
		},
		{
			name: "box straddling the midpoint goes by its center",
			eyes: []BoundingBox{
				{X: 170, Y: 150, W: 40, H: 40}, // center 190
			},
			expectLeft: &BoundingBox{X: 170, Y: 150, W: 40, H: 40},
		},
		{
			name: "later candidate wins on the same side",
			eyes: []BoundingBox{
				{X: 120, Y: 150, W: 30, H: 30},
				{X: 140, Y: 160, W: 30, H: 30},
			},
			expectLeft: &BoundingBox{X: 140, Y: 160, W: 30, H: 30},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			left, right := AssignEyes(face, tc.eyes)
			assert.Equal(t, tc.expectLeft, left)
			assert.Equal(t, tc.expectRight, right)
		})
	}
}

func TestEyeObservation_CloseWithoutImage(t *testing.T) {
	var nilEye *EyeObservation
	assert.NoError(t, nilEye.Close())
	assert.False(t, nilEye.HasImage())

	eye := &EyeObservation{Box: BoundingBox{X: 1, Y: 1, W: 10, H: 10}}
	assert.NoError(t, eye.Close())

	regions := Regions{Left: eye}
	regions.Close()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1.1, cfg.Face.ScaleFactor)
	assert.Equal(t, 5, cfg.Face.MinNeighbors)
	assert.Equal(t, 250, cfg.ZoomFace.MaxWidth)
	assert.Equal(t, 1.2, cfg.Eye.ScaleFactor)
	assert.Equal(t, 10, cfg.Eye.MinNeighbors)
	assert.Equal(t, 7, cfg.PupilMinRadius)
	assert.Equal(t, 20, cfg.PupilMaxRadius)
	assert.Equal(t, 40.0, cfg.PupilMinSeparation)
}

func TestConfig_ValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Face.ScaleFactor = 1.0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.PupilMaxRadius = 3
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.EyeCascadePath = ""
	assert.Error(t, cfg.Validate())
}

func TestSizeAllowed(t *testing.T) {
	p := DefaultConfig().ZoomFace
	assert.True(t, sizeAllowed(BoundingBox{W: 120, H: 140}, p))
	assert.False(t, sizeAllowed(BoundingBox{W: 90, H: 140}, p))
	assert.False(t, sizeAllowed(BoundingBox{W: 260, H: 140}, p))
}

func TestClip(t *testing.T) {
	got := clip(BoundingBox{X: -10, Y: 5, W: 50, H: 500}, 640, 480)
	assert.Equal(t, BoundingBox{X: 0, Y: 5, W: 40, H: 475}, got)
}
