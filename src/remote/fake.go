package remote

import (
	"context"
	"io"
	"sort"
	"strings"
)

// Call records one operation the fake performed.
type Call struct {
	// Kind is "run", "output", "upload" or "download".
	Kind    string
	Host    string
	Command string
	Local   string
	Remote  string
	Opts    TransferOptions
}

// FakeRunner is an in-memory Runner for unit tests. Behaviour is scripted by
// prefix: keys in Outputs and Fail are matched against "<host> <command>"
// (transfers use "<host> upload <remote>" / "<host> download <remote>"),
// falling back to the bare command. Longest matching prefix wins.
type FakeRunner struct {
	Outputs map[string]string
	Fail    map[string]error
	Calls   []Call
}

var _ Runner = (*FakeRunner)(nil)

func NewFake() *FakeRunner {
	return &FakeRunner{Outputs: map[string]string{}, Fail: map[string]error{}}
}

// CommandsFor returns the recorded commands and transfer descriptors for one
// host, in call order.
func (f *FakeRunner) CommandsFor(host string) []string {
	var out []string
	for _, c := range f.Calls {
		if c.Host != host {
			continue
		}
		switch c.Kind {
		case "upload", "download":
			out = append(out, c.Kind+" "+c.Remote)
		default:
			out = append(out, c.Command)
		}
	}
	return out
}

func (f *FakeRunner) match(m map[string]error, host, key string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Longest prefix first so specific scripts shadow broad ones.
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.HasPrefix(host+" "+key, k) || strings.HasPrefix(key, k) {
			return m[k]
		}
	}
	return nil
}

func (f *FakeRunner) output(host, command string) (string, bool) {
	keys := make([]string, 0, len(f.Outputs))
	for k := range f.Outputs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.HasPrefix(host+" "+command, k) || strings.HasPrefix(command, k) {
			return f.Outputs[k], true
		}
	}
	return "", false
}

func (f *FakeRunner) Run(ctx context.Context, h Host, command string, stdin io.Reader) error {
	f.Calls = append(f.Calls, Call{Kind: "run", Host: h.Name, Command: command})
	return f.match(f.Fail, h.Name, command)
}

func (f *FakeRunner) Output(ctx context.Context, h Host, command string) ([]byte, error) {
	f.Calls = append(f.Calls, Call{Kind: "output", Host: h.Name, Command: command})
	if err := f.match(f.Fail, h.Name, command); err != nil {
		return nil, err
	}
	out, _ := f.output(h.Name, command)
	return []byte(out), nil
}

func (f *FakeRunner) Upload(ctx context.Context, h Host, local, remote string, opts TransferOptions) error {
	f.Calls = append(f.Calls, Call{Kind: "upload", Host: h.Name, Local: local, Remote: remote, Opts: opts})
	return f.match(f.Fail, h.Name, "upload "+remote)
}

func (f *FakeRunner) Download(ctx context.Context, h Host, remote, local string, opts TransferOptions) error {
	f.Calls = append(f.Calls, Call{Kind: "download", Host: h.Name, Local: local, Remote: remote, Opts: opts})
	return f.match(f.Fail, h.Name, "download "+remote)
}
