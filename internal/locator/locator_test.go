package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waveSource = `#include "cctk.h"

/* forward declaration: wavetoy_evolve(nothing) */
static double square(double x)
{
	return x * x;
}

void wavetoy_evolve(CCTK_ARGUMENTS)
{
	const char *banner = "evolving {phi}";
	if (cctk_iteration == 0) {
		initialize();
	}
	step(square(dt));
}
`

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wavetoy.c")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindBody_ExtractsFunction(t *testing.T) {
	path := writeSource(t, waveSource)

	body, err := FindBody(path, "wavetoy_evolve")
	require.NoError(t, err)

	assert.Equal(t, "wavetoy_evolve", body.StepName)
	assert.Equal(t, "(CCTK_ARGUMENTS)", body.Signature)
	assert.Equal(t, 9, body.Line)
	assert.Contains(t, body.Code, "step(square(dt));")
	assert.True(t, body.Code[0] == '{' && body.Code[len(body.Code)-1] == '}')
	assert.NotContains(t, body.Code, "static double square", "must stop at the balanced brace")
}

func TestFindBody_BracesInsideLiteralsIgnored(t *testing.T) {
	path := writeSource(t, waveSource)

	body, err := FindBody(path, "wavetoy_evolve")
	require.NoError(t, err)
	// The string literal "evolving {phi}" must not unbalance extraction.
	assert.Contains(t, body.Code, `"evolving {phi}"`)
}

func TestFindBody_NotFound(t *testing.T) {
	path := writeSource(t, waveSource)

	_, err := FindBody(path, "no_such_step")
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "no_such_step", nf.Step)
}

func TestFindBody_CommentMentionIsNotADefinition(t *testing.T) {
	path := writeSource(t, waveSource)

	// "wavetoy_evolve(nothing)" appears in a comment but is never followed
	// by a brace-opened body at that position.
	body, err := FindBody(path, "wavetoy_evolve")
	require.NoError(t, err)
	assert.Equal(t, 9, body.Line)
}

func TestFindBody_MissingFile(t *testing.T) {
	_, err := FindBody(filepath.Join(t.TempDir(), "absent.c"), "step")
	assert.Error(t, err)
}
