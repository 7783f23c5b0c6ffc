/*
flow allows to compose directed processing graphs out of asynchronous stages.

A stage consumes items on its input, processes them in its own goroutine (or in a bounded goroutine pool, see WithParallelism) and
emits results on its output. Stages are wired with links. Each link owns its own queue, so a slow consumer never delays another one.
When a source completes, the completion is propagated along its links once their queues are drained.

The composer functions build the graph from a head stage:

- Next links a stage to the next one and returns it as the new head.
- If keeps only the items satisfying a predicate. The others are dropped.
- NextAll copies every item to several independent branches.
- Next2, Next3 and NextN run branches in parallel on every item then join their outputs by position: the k-th output of every
branch forms round k, and the new head emits the output of the first branch for each round.
- NextByKey does the same but pairs outputs by correlation ID, for branches which may reorder items.

For instance:

	source := flow.NewFunc(parse) // string -> Order
	valid := flow.If(source, func(o Order) bool { return o.Amount > 0 })
	head := flow.Next2[Order, Order](valid, enrich, audit)
	head.LinkTo(flow.NewAction(store))

Every stage built by NewTransform, NewFunc, NewAction and the composer is observed: a fault is logged at error level, a
completion at debug level, and extra Hooks can be attached with WithHooks. Faults stay local to the stage raising them:
downstream stages just stop receiving items and complete normally.

Note that positional joins are content blind. If a branch drops or reorders items, rounds will pair unrelated values,
and values beyond the shortest branch are never emitted. Use NextByKey in that case.
*/

package flow
