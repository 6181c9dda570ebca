// Command peer runs one member of a chat group whose messages every member
// prints in the same order.
//
//	peer [-config conf_chat.prop] [-words a,b,c] self [peer ...]
//
// The first machine name is this process. The remaining names, together with
// self, form the group; with no further names every configured machine is a
// member.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/senutpal/lamportchat/internal/config"
	"github.com/senutpal/lamportchat/internal/discovery"
	"github.com/senutpal/lamportchat/internal/httpapi"
	"github.com/senutpal/lamportchat/internal/node"
	"github.com/senutpal/lamportchat/internal/producer"
	"github.com/senutpal/lamportchat/internal/storage"
	"github.com/senutpal/lamportchat/internal/transcript"
	"github.com/senutpal/lamportchat/internal/transport"
)

const defaultWords = "apple,banana,cherry,grape,lemon,mango,orange,peach,pear,plum"

// readTimeout bounds how long a sender may hold an inbound connection open.
// Without it a half-open connection would block shutdown forever.
const readTimeout = 10 * time.Second

var errUsage = errors.New("usage")

type options struct {
	configPath string
	words      string
	httpAddr   string
	seed       int64
	quiet      bool

	self    string
	members []string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string, out io.Writer) (options, error) {
	opts := options{configPath: "conf_chat.prop", words: defaultWords}

	fs := flag.NewFlagSet("peer", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.configPath, "config", opts.configPath, "properties file describing the machines")
	fs.StringVar(&opts.words, "words", opts.words, "comma separated words to send")
	fs.StringVar(&opts.httpAddr, "http", opts.httpAddr, "admin address, overrides HTTP_ADDR")
	fs.Int64Var(&opts.seed, "seed", opts.seed, "random seed for the word generator, 0 picks one")
	fs.BoolVar(&opts.quiet, "quiet", opts.quiet, "do not log protocol traffic")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(out, "usage: peer [flags] self [peer ...]\n")
		fs.PrintDefaults()
		return opts, errUsage
	}
	opts.self = fs.Arg(0)
	if fs.NArg() > 1 {
		opts.members = fs.Args()
	}
	return opts, nil
}

// run returns instead of exiting so every deferred cleanup happens.
func run(opts options) error {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	if opts.quiet {
		logger.SetOutput(io.Discard)
	}

	file, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	res, err := file.Resolve(opts.self, opts.members)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	httpAddr := opts.httpAddr
	if httpAddr == "" {
		httpAddr = file.HTTPAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *transcript.Hub
	if httpAddr != "" {
		hub = transcript.NewHub(logger)
		go hub.Run(ctx)
	}
	var publisher transcript.Sink
	if file.RedisAddr != "" {
		rdb, err := transcript.DialRedis(ctx, file.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis %s: %w", file.RedisAddr, err)
		}
		defer rdb.Close()
		publisher = transcript.NewRedisPublisher(rdb, file.RedisChannel, logger)
	}

	tr, err := transport.ListenTCP(res.Self.Addr(), tcpOptions(file, logger))
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}

	n, err := node.New(node.Config{
		ID:         res.Self.ID,
		Name:       res.Self.Name,
		Peers:      res.Peers,
		ClockStart: file.ClockStart,
		Policy:     failurePolicy(file.BroadcastPolicy),
		Mode:       deliveryMode(file.DeliveryMode),
		PeerWait:   file.TimeToWait,
		Logger:     logger,
	}, tr, storage.NewMemoryPendingSet(), newSinks(os.Stdout, hub, publisher))
	if err != nil {
		tr.Close()
		return fmt.Errorf("node: %w", err)
	}
	n.Start()
	defer n.Stop()

	if hub != nil {
		srv := &http.Server{Addr: httpAddr, Handler: httpapi.NewRouter(n, hub.ServeWS, logger)}
		go func() {
			logger.Printf("[%s] admin API on %s", res.Self.Name, httpAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("[%s] admin API: %v", res.Self.Name, err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
	}

	if file.MDNS {
		st := n.Status()
		a, err := discovery.Announce(fmt.Sprintf("lamportchat-%s-%d", res.Self.Name, res.Self.ID),
			res.Self.Port, discovery.TXT(st.ID, st.Name, st.Instance))
		if err != nil {
			logger.Printf("[%s] %v", res.Self.Name, err)
		} else {
			defer a.Shutdown()
		}
	}

	if err := n.WaitForPeers(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Printf("[%s] producing anyway: %v", res.Self.Name, err)
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &producer.Generator{
		Lambda: file.WordLambda,
		Words:  splitWords(opts.words),
		Rand:   rand.New(rand.NewSource(seed)),
		Submit: func(ctx context.Context, w string) error {
			_, err := n.Submit(ctx, w)
			return err
		},
		Logger: logger,
	}
	if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("producer: %w", err)
	}
	return nil
}

func tcpOptions(file *config.File, logger *log.Logger) transport.TCPOptions {
	return transport.TCPOptions{
		DialTimeout: file.DialTimeout,
		ReadTimeout: readTimeout,
		Logger:      logger,
	}
}

// newSinks always prints to out; the feed and the publisher are optional.
func newSinks(out io.Writer, hub *transcript.Hub, publisher transcript.Sink) transcript.Multi {
	sinks := transcript.Multi{transcript.NewWriterSink(out)}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	return sinks
}

func splitWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func failurePolicy(p config.BroadcastPolicy) node.FailurePolicy {
	if p == config.PolicyAbort {
		return node.AbortOnFirst
	}
	return node.BestEffort
}

func deliveryMode(m config.DeliveryMode) node.DeliveryMode {
	if m == config.ModeSingle {
		return node.DeliverOne
	}
	return node.DeliverDrain
}
