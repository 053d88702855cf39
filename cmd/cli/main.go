package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	resolver "github.com/LOOK4869/DNS-Resolver"
	"github.com/miekg/dns"
)

func Resolve(ctx context.Context, r *resolver.Service, name string, qtype uint16, trace io.Writer) error {
	res, err := r.Resolve(ctx, name, qtype, trace)
	if trace != nil {
		fmt.Fprintln(trace)
	}
	if err == nil {
		if res.Found() {
			fmt.Printf("%s\t%d\tIN\tA\t%s\n", dns.Fqdn(name), int(res.TTL/time.Second), res.Addr)
			fmt.Println(";; STAGE:", res.Stage)
		} else {
			fmt.Printf(";; no answer for %s %s\n", dns.Type(qtype), name)
		}
	}
	return err
}

func Probe(ctx context.Context, cutoff time.Duration) {
	u := resolver.NewNetUpstream()
	cfg := resolver.DefaultConfig()
	for _, group := range []struct {
		name  string
		addrs []netip.Addr
	}{
		{"root", cfg.RootServers},
		{"public", cfg.PublicResolvers},
	} {
		results := u.Probe(ctx, group.addrs, cutoff)
		fmt.Printf(";; %s servers reachable within %v: %d of %d\n", group.name, cutoff, len(results), len(group.addrs))
		for _, pr := range results {
			fmt.Printf("%-16s %v\n", pr.Addr, pr.RTT.Round(time.Microsecond))
		}
	}
	udp, ipv6 := u.Transports()
	fmt.Printf(";; transports: udp=%v ipv6=%v\n", udp, ipv6)
}

func main() {
	qtypeName := flag.String("type", "A", "query type")
	quiet := flag.Bool("q", false, "do not write the resolution trace to stderr")
	probe := flag.Bool("probe", false, "measure root and public server latency instead of resolving")
	cutoff := flag.Duration("cutoff", 500*time.Millisecond, "latency cutoff for -probe")
	timeout := flag.Duration("timeout", resolver.DefaultTimeout, "per upstream attempt timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] name\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *probe {
		Probe(ctx, *cutoff)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	qtype, ok := dns.StringToType[*qtypeName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown query type %q\n", *qtypeName)
		os.Exit(2)
	}
	var trace io.Writer = os.Stderr
	if *quiet {
		trace = nil
	}
	cfg := resolver.DefaultConfig()
	cfg.Timeout = *timeout
	if err := Resolve(ctx, resolver.New(cfg), flag.Arg(0), qtype, trace); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
