package benchmark

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/fogfactory/flow"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Profile generates a profile file. It will be outputted as flow_{date}_x{items}_{parallelisms}.prof.
//
// - items Number of items pushed through the graph.
// - parallelisms Parallelism of each fan-out branch. Its length is also the number of branches joined by NextN.
//
// use pprof to read the file (go install github.com/google/pprof@latest).
func Profile(items int, parallelisms ...int) {
	// Profile file
	f, err := os.Create(fmt.Sprintf("flow_%s_x%d_%s.prof",
		strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-"),
		items,
		strings.Join(lo.Map(parallelisms, func(item, _ int) string { return fmt.Sprint(item) }), "-")))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()

	quiet := flow.WithLogger(zerolog.Nop())
	dumbProc := func(i int) int { time.Sleep(time.Millisecond); return i }

	// Init graph: source -> NextN(branches...) -> sink
	source := flow.NewFunc(func(i int) int { return i }, quiet)
	branches := lo.Map(parallelisms, func(p, i int) flow.Propagator[int, int] {
		return flow.NewFunc(dumbProc, quiet, flow.WithName(fmt.Sprintf("branch-%d", i)), flow.WithParallelism(p))
	})
	head, err := flow.NextN(source, branches...)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	count := 0
	sink := flow.NewAction(func(context.Context, int) error { count++; return nil }, quiet)
	head.LinkTo(sink)

	// linear processing equivalent
	totalCall := items * len(parallelisms)
	fmt.Println("totalCalls: ", totalCall, ", minimal seq duration:", time.Duration(totalCall)*time.Millisecond)

	// Start profiling
	func() {
		_ = pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()

		// Run graph
		start := time.Now()
		for _, i := range lo.Range(items) {
			_ = source.Send(context.Background(), i)
		}
		source.Complete()
		<-sink.Done()
		fmt.Printf("(par: %s, %d rounds)\n", time.Since(start), count)
	}()

	val := 0

	start := time.Now()
	for i := 0; i < totalCall; i++ {
		val = dumbProc(val)
	}
	fmt.Printf("(seq: %s)\n", time.Since(start))
	fmt.Printf("profile:%s\n", f.Name())

	// Call pprof on a file
	// pprof -http=:8080 $file
	// On all files
	// source <(ls | grep .prof | nl | awk '{print "pprof -http=:"$1 + 8080, $2,$3,"&"}')
}
