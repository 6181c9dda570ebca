// =============================================================================
// DEMO RUNNER - Totally-Ordered Chat in One Process
// =============================================================================
//
// Run with: go run ./cmd/demo
//
// Creates N peers on an in-memory network, has them send words round-robin,
// then prints every peer's transcript side by side:
//
//   ┌─────────┐  ┌─────────┐  ┌─────────┐
//   │   m1    │  │   m2    │  │   m3    │
//   └────┬────┘  └────┬────┘  └────┬────┘
//        └────────────┼────────────┘
//              transport.Network
//
// With -concurrent every peer submits at the same time. The readiness rule
// only asks for one pending entry per sender, and messages may overtake each
// other on the way, so the demo checks agreement instead of assuming it.
//
// With -drop the link between m1 and the last peer is cut before the first
// word. The last peer never sees m1's words and never acks them. Nobody
// delivers until later traffic fills the quorum; from then on the
// transcripts can diverge, because no message is ever retried.
//
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/senutpal/lamportchat/internal/config"
	"github.com/senutpal/lamportchat/internal/node"
	"github.com/senutpal/lamportchat/internal/storage"
	"github.com/senutpal/lamportchat/internal/transcript"
	"github.com/senutpal/lamportchat/internal/transport"
)

func main() {
	numPeers := flag.Int("n", 3, "number of peers")
	words := flag.String("words", "apple,banana,cherry,date,elderberry,fig", "comma separated words")
	concurrent := flag.Bool("concurrent", false, "submit all words at once")
	drop := flag.Bool("drop", false, "partition m1 from the last peer first")
	verbose := flag.Bool("v", false, "log protocol traffic")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "", log.Lmicroseconds)
	}

	var peers config.PeerSet
	for i := 1; i <= *numPeers; i++ {
		name := fmt.Sprintf("m%d", i)
		peers = append(peers, config.Peer{ID: int64(4000 + i), Name: name, Addr: name})
	}

	fmt.Printf("Starting %d peers, quorum %d\n\n", len(peers), peers.Quorum())

	network := transport.NewNetwork()
	nodes := make([]*node.Node, len(peers))
	recs := make([]*transcript.Recorder, len(peers))
	for i, p := range peers {
		recs[i] = &transcript.Recorder{}
		n, err := node.New(node.Config{
			ID:         p.ID,
			Name:       p.Name,
			Peers:      peers,
			ClockStart: p.ID % 10,
			PeerWait:   2 * time.Second,
			Logger:     logger,
		}, network.AddNode(p.Addr), storage.NewMemoryPendingSet(), recs[i])
		if err != nil {
			log.Fatalf("node %s: %v", p.Name, err)
		}
		nodes[i] = n
	}
	for _, n := range nodes {
		n.Start()
	}
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, n := range nodes {
		if err := n.WaitForPeers(ctx); err != nil {
			log.Fatalf("%s: %v", n.Name(), err)
		}
	}

	if *drop {
		last := peers[len(peers)-1].Addr
		network.Partition("m1", last)
		fmt.Printf("Link m1 <-> %s is down\n\n", last)
	}

	list := strings.Split(*words, ",")
	var wg sync.WaitGroup
	for i, w := range list {
		n := nodes[i%len(nodes)]
		submit := func(w string) {
			msg, err := n.Submit(ctx, w)
			if err != nil {
				fmt.Printf("%s submit %v: %v\n", n.Name(), msg, err)
				return
			}
			fmt.Printf("%s submit %v\n", n.Name(), msg)
		}
		if *concurrent {
			wg.Add(1)
			go func(w string) {
				defer wg.Done()
				submit(w)
			}(w)
			continue
		}
		submit(w)
		if err := network.Idle(ctx); err != nil {
			log.Fatalf("network: %v", err)
		}
	}
	wg.Wait()
	if err := network.Idle(ctx); err != nil {
		log.Fatalf("network: %v", err)
	}

	fmt.Println("\nTranscripts:")
	for i, n := range nodes {
		fmt.Printf("  %s: %s\n", n.Name(), strings.Join(recs[i].Payloads(), " "))
	}

	agree := true
	for _, rec := range recs[1:] {
		if strings.Join(rec.Payloads(), "\x00") != strings.Join(recs[0].Payloads(), "\x00") {
			agree = false
		}
	}
	switch {
	case !agree:
		fmt.Println("\nTranscripts DIFFER")
	case recs[0].Len() < len(list):
		fmt.Printf("\nAll peers agree; %d of %d words delivered\n", recs[0].Len(), len(list))
	default:
		fmt.Println("\nAll peers agree")
	}
}
