package curl

import (
	"fmt"
	"strings"
)

// arg is one parsed word of a curl invocation: a known option with its
// value, or a positional word when opt is nil.
type arg struct {
	opt   *option
	flag  string // as written, e.g. "-v" or "--verbose"
	value string
}

// invocation holds the arguments of one request; "--next" starts another.
type invocation struct {
	args    []arg
	unknown []string
}

type argParser struct {
	words   []string
	pos     int
	literal bool
	cur     invocation
	out     []invocation
}

func parseArgs(words []string) ([]invocation, error) {
	idx := curlIndex(words)
	if idx < 0 {
		return nil, errNotCurlCommand
	}
	p := &argParser{words: words, pos: idx + 1}
	for p.pos < len(p.words) {
		w := p.words[p.pos]
		p.pos++
		if w == "" {
			continue
		}
		var err error
		switch {
		case p.literal || w == "-" || !strings.HasPrefix(w, "-"):
			p.cur.args = append(p.cur.args, arg{value: w})
		case w == "--":
			p.literal = true
		case w == "--next":
			p.flush()
		case strings.HasPrefix(w, "--"):
			err = p.long(w)
		default:
			err = p.short(w)
		}
		if err != nil {
			return nil, err
		}
	}
	p.flush()
	return p.out, nil
}

func (p *argParser) flush() {
	if len(p.cur.args) > 0 || len(p.cur.unknown) > 0 {
		p.out = append(p.out, p.cur)
	}
	p.cur = invocation{}
}

func (p *argParser) value(flag string) (string, error) {
	if p.pos >= len(p.words) {
		return "", fmt.Errorf("missing argument for %s", flag)
	}
	v := p.words[p.pos]
	p.pos++
	return v, nil
}

func (p *argParser) long(w string) error {
	name, value, inline := strings.Cut(w[2:], "=")
	flag := "--" + name
	o := longOptions[name]
	if o == nil {
		p.cur.unknown = append(p.cur.unknown, flag)
		return nil
	}
	if o.takesValue && !inline {
		v, err := p.value(flag)
		if err != nil {
			return err
		}
		value = v
	}
	p.cur.args = append(p.cur.args, arg{opt: o, flag: flag, value: value})
	return nil
}

// short handles a cluster such as "-sSL" or "-XPOST". The first letter
// that takes a value swallows the rest of the cluster, or the next word.
func (p *argParser) short(w string) error {
	cluster := w[1:]
	for i := 0; i < len(cluster); i++ {
		flag := "-" + cluster[i:i+1]
		o := shortOptions[cluster[i]]
		if o == nil {
			p.cur.unknown = append(p.cur.unknown, flag)
			continue
		}
		if !o.takesValue {
			p.cur.args = append(p.cur.args, arg{opt: o, flag: flag})
			continue
		}
		value := cluster[i+1:]
		if value == "" {
			v, err := p.value(flag)
			if err != nil {
				return err
			}
			value = v
		}
		p.cur.args = append(p.cur.args, arg{opt: o, flag: flag, value: value})
		return nil
	}
	return nil
}
