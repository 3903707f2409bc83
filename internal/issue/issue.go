// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	RuntimeNotFoundId Id = iota + 1
	ExecutableNotFoundId
	ScriptNotFoundId
	ScriptMaterializeFailedId
	ExecutionFailedId
	ConfigLoadFailedId
	NoSyntaxCheckId
	InvalidInstallationId
	NodeHomeUnknownId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // lookup key
	title    string      // one-line summary used by listings
	mdMsg    MarkdownMsg // rendered body
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Title() string {
	return i.title
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render returns the message rendered for a terminal. stylePath is passed to
// glamour; "" selects its default style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	runtimeNotFoundIssue = &Issue{
		id:    RuntimeNotFoundId,
		title: "runtime not configured",
		mdMsg: `
# Runtime not found

No runtime installation with that name is configured.

## Things you can try
- List the configured runtimes:
~~~
$ univscript runtimes list
~~~
- Add an entry under ` + "`runtimes`" + ` in your config file:
~~~cue
runtimes: [{
	name:            "perl"
	home:            "/opt/perl"
	unix_executable: "bin/perl"
}]
~~~`,
	}

	executableNotFoundIssue = &Issue{
		id:    ExecutableNotFoundId,
		title: "runtime executable missing",
		mdMsg: `
# Runtime executable is missing

The runtime has no executable configured for this platform, or the file does
not exist under the runtime home on the target node.

## Things you can try
- Check ` + "`unix_executable`" + ` or ` + "`windows_executable`" + ` for the runtime.
- Check that the home path exists on the node. Network share homes (starting
  with ` + "`//`" + `) are translated through the node's mount table.
- Add a per-node home under ` + "`nodes`" + ` when the runtime lives elsewhere.`,
	}

	scriptNotFoundIssue = &Issue{
		id:    ScriptNotFoundId,
		title: "script file missing",
		mdMsg: `
# Script file not found

Relative script paths are resolved against the workspace directory.

## Things you can try
- Pass ` + "`--workspace`" + ` to point at the directory holding the script.
- Use an absolute path.`,
	}

	scriptMaterializeFailedIssue = &Issue{
		id:    ScriptMaterializeFailedId,
		title: "could not prepare script",
		mdMsg: `
# Could not prepare the script

The inline script could not be written to a temporary file in the workspace,
or the script body was empty.

## Things you can try
- Check that the workspace directory is writable.
- Provide a non-empty script body.`,
	}

	executionFailedIssue = &Issue{
		id:    ExecutionFailedId,
		title: "script failed",
		mdMsg: `
# Script execution failed

The runtime process exited with a non-zero status.

## Things you can try
- Re-run with ` + "`--verbose`" + ` to see the full command line.
- Pass ` + "`--ignore-failure`" + ` to report the exit code without failing.`,
	}

	configLoadFailedIssue = &Issue{
		id:    ConfigLoadFailedId,
		title: "config invalid",
		mdMsg: `
# Failed to load configuration

The config file could not be parsed or does not match the schema.

## Things you can try
- Show where the config is read from:
~~~
$ univscript config path
~~~
- Write a fresh default config:
~~~
$ univscript config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	noSyntaxCheckIssue = &Issue{
		id:    NoSyntaxCheckId,
		title: "no syntax check configured",
		mdMsg: `
# Syntax checking is not available

The runtime has no ` + "`check_command`" + ` configured.

## Things you can try
- Add a check command, for example ` + "`bin/perl -c`" + `.
- Point ` + "`check_command`" + ` at another runtime's name to reuse its checker.`,
	}

	invalidInstallationIssue = &Issue{
		id:    InvalidInstallationId,
		title: "invalid runtime entry",
		mdMsg: `
# Invalid runtime installation

Every runtime needs a unique name, a home and at least one executable.`,
	}

	nodeHomeUnknownIssue = &Issue{
		id:    NodeHomeUnknownId,
		title: "node home unknown",
		mdMsg: `
# Node cannot locate the runtime

The selected node could not translate the runtime home.

## Things you can try
- Add the runtime to the node's ` + "`homes`" + ` list, or check the node name.
- Run on the built-in node with ` + "`--node built-in`" + `.`,
	}

	issues = map[Id]*Issue{
		runtimeNotFoundIssue.Id():         runtimeNotFoundIssue,
		executableNotFoundIssue.Id():      executableNotFoundIssue,
		scriptNotFoundIssue.Id():          scriptNotFoundIssue,
		scriptMaterializeFailedIssue.Id(): scriptMaterializeFailedIssue,
		executionFailedIssue.Id():         executionFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		noSyntaxCheckIssue.Id():           noSyntaxCheckIssue,
		invalidInstallationIssue.Id():     invalidInstallationIssue,
		nodeHomeUnknownIssue.Id():         nodeHomeUnknownIssue,
	}
)

// Values returns the catalog ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
