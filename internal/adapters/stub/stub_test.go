package stub

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(domain.DefaultDepartments())

	cases := []struct {
		name          string
		text          string
		dept          string
		subcategory   string
		location      domain.LocationClass
		confidence    float64
		clarification bool
	}{
		{
			name:        "confident roads",
			text:        "Large pothole on the main road near the bridge",
			dept:        "D01",
			subcategory: "bridge_crack",
			location:    domain.LocationMainRoad,
			confidence:  0.9,
		},
		{
			name:        "single hit",
			text:        "Overflowing garbage near the market",
			dept:        "D05",
			subcategory: "missed_collection_once",
			location:    domain.LocationMarket,
			confidence:  0.8,
		},
		{
			name:          "nothing recognisable",
			text:          "Please help us",
			location:      domain.LocationUnknown,
			confidence:    0.4,
			clarification: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tc.text, "")
			require.NoError(t, err)
			assert.Equal(t, tc.dept, got.DepartmentID)
			assert.Equal(t, tc.subcategory, got.Subcategory)
			assert.Equal(t, string(tc.location), got.LocationClass)
			assert.Equal(t, tc.confidence, got.Confidence)
			assert.Equal(t, tc.clarification, got.NeedsClarification)
		})
	}
}

func TestMemoryEvidenceRoundTrip(t *testing.T) {
	store := NewMemoryEvidence()
	ctx := context.Background()

	uri, err := store.Store(ctx, "evidence/CIV-2026-00001/before-x", strings.NewReader("jpeg"), 4, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "memory://evidence/CIV-2026-00001/before-x", uri)

	rc, err := store.Retrieve(ctx, uri)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(body))

	_, err = store.Retrieve(ctx, "memory://missing")
	assert.Error(t, err)
}

func TestPhotoVerifierNeedsHuman(t *testing.T) {
	v, err := PhotoVerifier{}.VerifyWorkPhotos(context.Background(), "a", "b", "large_pothole")
	require.NoError(t, err)
	assert.True(t, v.Inconclusive(0.85))
	assert.True(t, v.WorkCompleted)
}
