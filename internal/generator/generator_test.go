package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUsage(t *testing.T) {
	cases := []struct {
		name, usage, path, want string
	}{
		{
			name:  "Profile replaced and sections cut",
			usage: "usage: maas admin machines read [-h] id  positional arguments: id",
			path:  "machines read",
			want:  "maas $PROFILE machines read [-h] id",
		},
		{
			name:  "Builtin keeps its words",
			usage: "usage: maas login [-h] profile-name url",
			path:  "login",
			want:  "maas login [-h] profile-name url",
		},
		{
			name: "Empty usage is synthesized",
			path: "machines read",
			want: "maas machines read [-h]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatUsage(tc.usage, tc.path))
		})
	}
}

func TestPositionalArgs(t *testing.T) {
	assert.Equal(t, []string{"system_id"},
		PositionalArgs("maas $PROFILE machine deploy [-h] system_id [data ...]", "machine deploy"))
	assert.Nil(t, PositionalArgs("maas login [-h] profile-name url", "login"))
	assert.Equal(t, "The ID of the resource (e.g., `1`, `abc123`)", PositionalDescription("id"))
	assert.Equal(t, "The zone parameter", PositionalDescription("zone"))
}

func TestParseKeyToGroup(t *testing.T) {
	cases := []struct {
		key, group, path string
	}{
		{"maas admin machines read", "machine", "machines read"},
		{"maas admin machine deploy", "machine", "machine deploy"},
		{"maas admin discoveries read", "discovery", "discoveries read"},
		{"maas admin license-keys read", "license-key", "license-keys read"},
		{"maas admin boot-resources", "admin", "admin boot-resources"},
		{"maas login", "login", "login"},
	}
	for _, tc := range cases {
		group, path := ParseKeyToGroup(tc.key)
		assert.Equal(t, tc.group, group, tc.key)
		assert.Equal(t, tc.path, path, tc.key)
	}
	assert.Equal(t, "box", Singularize("boxes"))
	assert.Equal(t, "ss", Singularize("ss"))
}

func TestFixText(t *testing.T) {
	assert.Equal(t, "Do this. Then that…", fixText("Do this.  Then that..."))
	assert.Equal(t, "Wait...ok", fixText("Wait...ok"))
	assert.Equal(t, "Pick the node.", fixText("Pick the the node."))
	assert.Equal(t, "Set “enabled” flag.", fixText(`Set "enabled" flag.`))
	assert.Equal(t, "`code` and \"x\"", fixText("`code` and \"x\""))
	assert.Equal(t, "A fast path.", fixText("A very fast path."))
	assert.Equal(t, "Optional. String.", fixText("Optional. Optional. String."))
	assert.Equal(t, `a<br>b \| c`, normalizeText("a\nb | c\n"))
}

func TestParseKeywords(t *testing.T) {
	text := "Create a zone.\n\n" +
		":param name: Required. The zone name.\n" +
		":type name: String\n\n" +
		":param description: Optional. A  description.\n" +
		"  spans lines\n"
	kw := ParseKeywords(text)

	assert.Equal(t, "Create a zone.", kw.Lead)
	require.Len(t, kw.Params, 2)
	assert.Equal(t, Keyword{Name: "name", Type: "String", Desc: "The zone name."}, kw.Params[0])
	assert.Equal(t, Keyword{Name: "description", Desc: "A  description.<br>spans lines"}, kw.Params[1])
}

func TestNormalizeOptions(t *testing.T) {
	opts, notes := normalizeOptions([]Option{
		{Option: "-h, --help", Effect: "show this help message and exit"},
		{Option: "--username USERNAME  The user name."},
		{Option: "--password", Effect: "The password. If credentials are not provided on the command-line, they will be prompted"},
		{Option: "", Effect: "orphan effect"},
	})
	assert.Equal(t, []Option{
		{Option: "-h, --help", Effect: "show this help message and exit."},
		{Option: "--username USERNAME", Effect: "The user name."},
		{Option: "--password", Effect: "The password."},
	}, opts)
	assert.Equal(t, []string{credentialsNote}, notes)
}

func TestBoldListLeaders(t *testing.T) {
	in := "Modes:\n- all: everything\n  - region: the region only\nplain: text"
	want := "Modes:\n- **all**: everything\n  - **region**: the region only\nplain: text"
	assert.Equal(t, want, boldListLeaders(in))
}

func TestRenderCommand(t *testing.T) {
	md, err := RenderCommand(Command{
		Key:          "maas admin machines read",
		Overview:     "Read a machine.",
		Usage:        "usage: maas admin machines read [-h] id",
		Options:      []Option{{Option: "-h, --help", Effect: "show this help message and exit"}},
		KeywordsText: "Read one.\n:param id: The id.\n:type id: Int",
		ReturnsJSON:  true,
		AdditionalSections: []Section{
			{Title: "run modes", Content: "sudo rm -rf\n- region: the region"},
		},
	}, "machines read")
	require.NoError(t, err)

	for _, want := range []string{
		"## machines read\n",
		"Read a machine.\n",
		"```bash\nmaas $PROFILE machines read [-h] id\n```\n",
		"| id | The ID of the resource (e.g., `1`, `abc123`) |\n",
		"| -h, --help | show this help message and exit. |\n",
		"#### Keywords\n",
		"| id | Int | The id. |\n",
		"This command returns JSON output.\n",
		"#### Run modes\n- **region**: the region\n",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "sudo")
	assert.NotContains(t, md, "accepts JSON")
}

func TestGenerator_Run(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(out, "reference"), 0o755))
	machinePage := filepath.Join(out, "reference", "machine-5678.md")
	require.NoError(t, os.WriteFile(machinePage, []byte("old\n"), 0o644))
	eventsPage := filepath.Join(out, "events-1234.md")
	require.NoError(t, os.WriteFile(eventsPage, []byte("old\n"), 0o644))

	cmds := []Command{
		{Key: "maas admin machines read", Overview: "Stale.", Usage: "usage: maas admin machines read [-h] id"},
		{Key: "maas admin machine deploy", Overview: "Deploy a machine.", Usage: "usage: maas admin machine deploy [-h] system_id"},
		{Key: "maas admin machines read", Overview: "Read a machine.", Usage: "usage: maas admin machines read [-h] id"},
		{Key: "maas admin events query", Overview: "Query events."},
		{Key: "maas admin boot-resources", Overview: "Profile-level command."},
		{Key: "maas login", Overview: "Log in to a remote API.", Usage: "usage: maas login [-h] profile-name url",
			Options: []Option{{Option: "--password", Effect: "The password. If credentials are not provided on the command-line"}}},
		{Overview: "no key"},
	}
	gen := New(out, []string{"local", "admin"}, false)

	stats, err := gen.Run(context.Background(), cmds)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Commands)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 0, stats.Skipped)
	assert.ElementsMatch(t, []string{"events-1234.md", "login-tba.md", "reference/machine-5678.md"}, stats.WouldChange)

	t.Run("Pages reuse topic numbers", func(t *testing.T) {
		data, err := os.ReadFile(machinePage)
		require.NoError(t, err)
		page := string(data)
		assert.Less(t, strings.Index(page, "## machine deploy"), strings.Index(page, "## machines read"))
		assert.Contains(t, page, "Read a machine.")
		assert.NotContains(t, page, "Stale.")
		assert.Contains(t, page, "| system_id | The system ID of the machine/device (e.g., `abc123`) |")
		assert.True(t, strings.HasSuffix(page, "\n"))
		assert.False(t, strings.HasSuffix(page, "\n\n"))

		_, err = os.Stat(filepath.Join(out, "admin-tba.md"))
		assert.True(t, os.IsNotExist(err), "skipped group must not be written")
	})

	t.Run("Credential note moves out of the table", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(out, "login-tba.md"))
		require.NoError(t, err)
		assert.Contains(t, string(data), credentialsNote)
		assert.Contains(t, string(data), "| --password | The password. |")
	})

	t.Run("Second run is clean", func(t *testing.T) {
		stats, err := gen.Run(context.Background(), cmds)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Skipped)
		assert.False(t, stats.Dirty())
	})

	t.Run("Check dirty writes nothing", func(t *testing.T) {
		loginPage := filepath.Join(out, "login-tba.md")
		require.NoError(t, os.WriteFile(loginPage, []byte("edited\n"), 0o644))

		stats, err := New(out, []string{"local", "admin"}, true).Run(context.Background(), cmds)
		require.NoError(t, err)
		assert.True(t, stats.Dirty())
		assert.Equal(t, []string{"login-tba.md"}, stats.WouldChange)

		data, err := os.ReadFile(loginPage)
		require.NoError(t, err)
		assert.Equal(t, "edited\n", string(data))
	})
}

func TestGenerator_NoCommands(t *testing.T) {
	_, err := New(t.TempDir(), nil, false).Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoCommands))
}

func TestLoadCommands(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "commands.json"))
	require.NoError(t, err)
	defer f.Close()

	cmds, err := LoadCommands(f)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "maas admin zones create", cmds[0].Key)
	assert.True(t, cmds[0].ReturnsJSON)
	require.Len(t, cmds[0].Options, 1)
	assert.Equal(t, "-h, --help", cmds[0].Options[0].Option)

	_, err = LoadCommands(strings.NewReader("{not json"))
	assert.Error(t, err)

	t.Run("Schema violations", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"Not an array", `{"key": "maas login"}`},
			{"Missing key", `[{"overview": "Log in."}]`},
			{"Blank key", `[{"key": "  "}]`},
			{"Option without name", `[{"key": "maas login", "options": [{"effect": "x"}]}]`},
			{"Flag is not a boolean", `[{"key": "maas login", "accepts_json": "yes"}]`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := LoadCommands(strings.NewReader(tt.input))
				assert.ErrorContains(t, err, "command schema")
			})
		}
	})

	t.Run("Null fields are accepted", func(t *testing.T) {
		cmds, err := LoadCommands(strings.NewReader(`[{"key": "maas logout", "overview": null, "options": null}]`))
		require.NoError(t, err)
		require.Len(t, cmds, 1)
		assert.Equal(t, "maas logout", cmds[0].Key)
		assert.Empty(t, cmds[0].Options)
	})
}
