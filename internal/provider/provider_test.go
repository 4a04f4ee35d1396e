package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lasrun/internal/lastools"
)

func TestDefault(t *testing.T) {
	r := Default()
	all := r.List()
	assert.Len(t, all, len(lastools.BaseTools())+len(lastools.ProductionTools())+10)

	for _, name := range []string{
		"lasinfo", "lasground", "las2dem", "blast2iso", "lasintensity",
		"lasground_pro", "lasmerge_pro", "las2dem_pro",
		"flightlines_to_dtm_and_dsm", "flightlines_to_merged_chm_spike_free", "huge_file_classify",
	} {
		tool, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, tool.Name)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Default().Lookup("lasmagic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, lastools.ErrUnknownTool))
	assert.Contains(t, err.Error(), "lasmagic")
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&lastools.Tool{Name: "a", Group: lastools.GroupTools}))
	assert.Error(t, r.Register(&lastools.Tool{Name: "a"}))
	assert.Error(t, r.Register(&lastools.Tool{}))
	assert.Error(t, r.Register(nil))
}

func TestList_Order(t *testing.T) {
	r := NewRegistry()
	for _, tool := range []*lastools.Tool{
		{Name: "z_pipeline", Group: lastools.GroupPipelines},
		{Name: "b", Group: lastools.GroupTools},
		{Name: "custom", Group: "Other"},
		{Name: "a_pro", Group: lastools.GroupProduction},
		{Name: "a", Group: lastools.GroupTools},
	} {
		require.NoError(t, r.Register(tool))
	}

	var names []string
	for _, tool := range r.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"a", "b", "a_pro", "z_pipeline", "custom"}, names)

	groups, byGroup := r.Groups()
	assert.Equal(t, []string{lastools.GroupTools, lastools.GroupProduction, lastools.GroupPipelines, "Other"}, groups)
	assert.Len(t, byGroup[lastools.GroupTools], 2)
}
