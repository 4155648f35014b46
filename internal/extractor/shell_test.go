package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExtractor_ExtractInvocations(t *testing.T) {
	sh := NewShellExtractor("maas")
	ctx := context.Background()

	t.Run("Plain commands and pipelines", func(t *testing.T) {
		sample := CodeSample{Content: "maas $PROFILE boot-resources import\n" +
			"maas admin machines read | jq '.[].hostname'\n" +
			"echo done\n"}
		invs, err := sh.ExtractInvocations(ctx, sample)
		require.NoError(t, err)
		require.Len(t, invs, 2)

		assert.Equal(t, "$PROFILE", invs[0].Profile)
		assert.Equal(t, "boot-resources import", invs[0].Group())
		assert.Equal(t, 1, invs[0].Line)
		assert.Equal(t, "machines read", invs[1].Group())
		assert.Equal(t, 2, invs[1].Line)
	})

	t.Run("Sudo and quoted values", func(t *testing.T) {
		sample := CodeSample{Line: 10, Content: `sudo -E maas admin machine deploy abc123 distro_series="jammy" comment='first boot'`}
		invs, err := sh.ExtractInvocations(ctx, sample)
		require.NoError(t, err)
		require.Len(t, invs, 1)

		inv := invs[0]
		assert.Equal(t, "machine deploy", inv.Group())
		assert.Equal(t, []string{"abc123"}, inv.Positional)
		assert.Equal(t, "jammy", inv.Params["distro_series"])
		assert.Equal(t, "first boot", inv.Params["comment"])
		assert.Equal(t, 11, inv.Line)
	})

	t.Run("Prompt lines and output", func(t *testing.T) {
		sample := CodeSample{Content: "$ maas admin users read\n[{\"username\": \"admin\"}]\n$ maas logout admin\n"}
		invs, err := sh.ExtractInvocations(ctx, sample)
		require.NoError(t, err)
		require.Len(t, invs, 2)

		assert.Equal(t, "users read", invs[0].Group())
		assert.Equal(t, "logout", invs[1].Resource)
		assert.Empty(t, invs[1].Profile)
		assert.Equal(t, []string{"admin"}, invs[1].Positional)
		assert.Equal(t, 3, invs[1].Line)
	})

	t.Run("Root prompt", func(t *testing.T) {
		sample := CodeSample{Content: "# maas admin users create username=bob email=b@x password=p is_superuser=0\n"}
		invs, err := sh.ExtractInvocations(ctx, sample)
		require.NoError(t, err)
		require.Len(t, invs, 1)

		assert.Equal(t, "users create", invs[0].Group())
		assert.Equal(t, []string{"username", "email", "password", "is_superuser"}, invs[0].ParamOrder)
		assert.Equal(t, 1, invs[0].Line)
	})

	t.Run("Comment lines are not commands", func(t *testing.T) {
		sample := CodeSample{Content: "# a region controller comes first\n# then run the following\nmaas init region\n"}
		invs, err := sh.ExtractInvocations(ctx, sample)
		require.NoError(t, err)
		require.Len(t, invs, 1)
		assert.Equal(t, "init", invs[0].Resource)
		assert.Equal(t, 3, invs[0].Line)
	})

	t.Run("Other tools are ignored", func(t *testing.T) {
		invs, err := sh.ExtractInvocations(ctx, CodeSample{Content: "snap install maas\nlxc list\n"})
		require.NoError(t, err)
		assert.Empty(t, invs)
	})

	t.Run("Empty sample", func(t *testing.T) {
		invs, err := sh.ExtractInvocations(ctx, CodeSample{Content: "  \n"})
		require.NoError(t, err)
		assert.Empty(t, invs)
	})
}

func TestParseInvocation(t *testing.T) {
	t.Run("Builtin with flags", func(t *testing.T) {
		inv := ParseInvocation("maas", []string{"createadmin", "--username=admin", "--email=a@b.c"})
		assert.Equal(t, "createadmin", inv.Resource)
		assert.Empty(t, inv.Profile)
		assert.Equal(t, []string{"--username=admin", "--email=a@b.c"}, inv.Flags)
		assert.Empty(t, inv.Params)
	})

	t.Run("Profile only", func(t *testing.T) {
		inv := ParseInvocation("maas", []string{"admin"})
		assert.Equal(t, "admin", inv.Profile)
		assert.Empty(t, inv.Resource)
	})

	t.Run("Params keep first-seen order", func(t *testing.T) {
		inv := ParseInvocation("maas", []string{"admin", "tags", "create", "name=virtual", "comment=x", "name=again"})
		assert.Equal(t, []string{"name", "comment"}, inv.ParamOrder)
		assert.Equal(t, "again", inv.Params["name"])
	})
}

func TestStripPrompts(t *testing.T) {
	in := "$ maas login admin \\\n  http://localhost:5240/MAAS key\nYou are now logged in.\n$ maas list"
	out := stripPrompts(in, "maas")
	assert.Equal(t, "maas login admin \\\n  http://localhost:5240/MAAS key\n\nmaas list", out)

	assert.Equal(t, "maas list", stripPrompts("maas list", "maas"))

	t.Run("Root prompt before the tool", func(t *testing.T) {
		assert.Equal(t, "maas admin users read\n", stripPrompts("# maas admin users read\n", "maas"))
		assert.Equal(t, "sudo maas init", stripPrompts("# sudo maas init", "maas"))
	})

	t.Run("Comments stay comments", func(t *testing.T) {
		in := "# install the snap first\nsnap install maas"
		assert.Equal(t, in, stripPrompts(in, "maas"))
	})
}
