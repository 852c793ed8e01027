package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ivf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

const smallConfig = `
pix:
  nx: 16
  dx_arcmin: 2
filter:
  lmax: 3000
sims:
  count: 3
  workers: 2
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFLCommand(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t, smallConfig), "fl", "--bins", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2+3)
	assert.Contains(t, lines[0], "FL T")
}

func TestRunCommand(t *testing.T) {
	cfg := smallConfig + "cache_dir: " + filepath.Join(t.TempDir(), "cache") + "\n"
	path := writeConfig(t, cfg)

	out, err := execute(t, "--config", path, "run", "--bins", "2", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "ivf_sim_teb_total filter=diag result=ok 3")
	assert.Equal(t, 3*2, strings.Count(out, "\n")-2-2)

	again, err := execute(t, "--config", path, "run", "--bins", "2")
	require.NoError(t, err)
	assert.Equal(t, out[:strings.Index(out, "ivf_")], again)
}

func TestCheckCommand(t *testing.T) {
	lib := t.TempDir()
	path := writeConfig(t, smallConfig+"lib_dir: "+lib+"\nlmask:\n  lmin: 200\n")

	out, err := execute(t, "--config", path, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "consistent")
	assert.FileExists(t, filepath.Join(lib, hashdict.FileName))
	assert.FileExists(t, filepath.Join(lib, lmaskDir, hashdict.FileName))

	changed := writeConfig(t, smallConfig+"lib_dir: "+lib+"\nlmask:\n  lmin: 300\n")
	_, err = execute(t, "--config", changed, "check")
	assert.ErrorIs(t, err, hashdict.ErrMismatch)

	t.Setenv("IVF_FILTER_NLEV_T", "1")
	_, err = execute(t, "--config", path, "check")
	assert.ErrorIs(t, err, hashdict.ErrMismatch)
}

func TestCheckRequiresLibDir(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t, smallConfig), "check")
	assert.Error(t, err)
}

func TestCheckAcrossProcessGroup(t *testing.T) {
	lib, barrier := t.TempDir(), t.TempDir()
	const size = 3

	var eg errgroup.Group
	outs := make([]string, size)
	for r := range size {
		path := writeConfig(t, smallConfig+
			"lib_dir: "+lib+"\n"+
			"cluster:\n  size: 3\n  rank: "+string(rune('0'+r))+"\n  barrier_dir: "+barrier+"\n  run_id: first\n")
		eg.Go(func() error {
			out, err := execute(t, "--config", path, "check")
			outs[r] = out
			return err
		})
	}
	require.NoError(t, eg.Wait())
	for r, out := range outs {
		assert.Contains(t, out, "rank "+string(rune('0'+r))+" of 3")
	}
}

func TestCheckGroupMismatchFailsEveryRank(t *testing.T) {
	lib, barrier := t.TempDir(), t.TempDir()
	const size = 2

	errs := make([]error, size)
	var eg errgroup.Group
	for r := range size {
		nlev := "10"
		if r == 1 {
			nlev = "11"
		}
		path := writeConfig(t, "pix:\n  nx: 16\n  dx_arcmin: 2\n"+
			"filter:\n  lmax: 3000\n  nlev_t: "+nlev+"\n"+
			"lib_dir: "+lib+"\n"+
			"cluster:\n  size: 2\n  rank: "+string(rune('0'+r))+"\n  barrier_dir: "+barrier+"\n  run_id: mixed\n")
		eg.Go(func() error {
			_, errs[r] = execute(t, "--config", path, "check")
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	for r, err := range errs {
		assert.ErrorIs(t, err, hashdict.ErrMismatch, "rank %d", r)
	}
}

func TestFullSkyCommand(t *testing.T) {
	path := writeConfig(t, smallConfig+"lib_dir: "+t.TempDir()+"\n")

	rows := func(t *testing.T) map[string][]string {
		t.Helper()
		out, err := execute(t, "--config", path, "fullsky", "--step", "500")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2+7)
		got := map[string][]string{}
		for _, line := range lines[2:] {
			fields := strings.Fields(line)
			got[fields[0]] = fields[1:]
		}
		return got
	}

	uncut := rows(t)
	assert.Equal(t, []string{"0", "0", "0"}, uncut["0"])
	assert.NotEqual(t, "0", uncut["500"][0])

	t.Setenv("IVF_FILTER_LCUT", "700")
	t.Setenv("IVF_LIB_DIR", t.TempDir())
	cut := rows(t)
	assert.Equal(t, []string{"0", "0", "0"}, cut["500"])
	assert.Equal(t, uncut["1000"], cut["1000"])
}

func TestRankIndices(t *testing.T) {
	assert.Equal(t, []int{1, 4, 7}, rankIndices(9, 1, 3))
	assert.Equal(t, []int{0, 1, 2}, rankIndices(3, 0, 1))
	assert.Nil(t, rankIndices(1, 2, 3))
}

func TestLinearEdges(t *testing.T) {
	assert.Equal(t, []float64{0, 1000, 2000, 3000}, linearEdges(3000, 3))
}
