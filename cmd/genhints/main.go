package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"os"
	"text/template"

	"github.com/miekg/dns"
)

//go:embed roothints.go.tmpl
var roothintsgotmpl string

type Roots struct {
	Roots4 []netip.Addr
}

// parseRoots collects the IPv4 root addresses in the order named.root
// lists them, which is a through m.
func parseRoots(r io.Reader) (roots Roots, err error) {
	seen := make(map[netip.Addr]struct{})
	zp := dns.NewZoneParser(r, "", "")
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		if a, isA := rr.(*dns.A); isA {
			if ip, ok := netip.AddrFromSlice(a.A); ok {
				if ip = ip.Unmap(); ip.Is4() {
					if _, dup := seen[ip]; !dup {
						seen[ip] = struct{}{}
						roots.Roots4 = append(roots.Roots4, ip)
					}
				}
			}
		}
	}
	if err = zp.Err(); err == nil && len(roots.Roots4) == 0 {
		err = errors.New("no IPv4 root servers found")
	}
	return
}

func render(w io.Writer, roots Roots) (err error) {
	var t *template.Template
	if t, err = template.New("").Parse(roothintsgotmpl); err == nil {
		err = t.Execute(w, roots)
	}
	return
}

func main() {
	resp, err := http.Get("https://www.internic.net/domain/named.root")
	if err == nil {
		defer resp.Body.Close()
		var body []byte
		if body, err = io.ReadAll(resp.Body); err == nil {
			var roots Roots
			if roots, err = parseRoots(bytes.NewReader(body)); err == nil {
				var of *os.File
				if len(os.Args) < 2 {
					of = os.Stdout
				} else {
					if of, err = os.Create(os.Args[1]); err == nil {
						defer of.Close()
					}
				}
				if err == nil {
					err = render(of, roots)
				}
			}
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
