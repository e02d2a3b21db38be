package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := CorpusConfig{
		View:       View{BaseTextSegmentation: "dipl"},
		CorpusSize: CorpusSize{Quantity: 42, Unit: CorpusSizeUnit{Segmentation: "dipl"}},
	}
	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestComponentDescriptorRoundTrips(t *testing.T) {
	dir := t.TempDir()
	desc := ComponentDescriptor{Impl: "adjacencylist", FormatVersion: 1}
	require.NoError(t, SaveComponentDescriptor(dir, desc))

	loaded, err := LoadComponentDescriptor(dir)
	require.NoError(t, err)
	require.Equal(t, desc, loaded)
}
