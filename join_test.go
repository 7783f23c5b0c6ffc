package flow_test

import (
	"context"
	"testing"
	"time"

	"github.com/fogfactory/flow"
	"github.com/maxatome/go-testdeep/td"
)

func TestJoin(t *testing.T) {

	t.Run("error_invalid_lane_count", func(t *testing.T) {
		for _, n := range []int{-1, 0, 1} {
			// Act
			join, err := flow.NewJoin[int](n, quiet())

			// Assert
			td.CmpErrorIs(t, err, flow.ErrInvalidBranchCount)
			td.CmpNil(t, join)
		}
	})

	t.Run("success_shorter_lane_strands_tail", func(t *testing.T) {
		// Arrange
		join, err := flow.NewJoin[string](2, quiet())
		td.Require(t).CmpNoError(err)
		out := collect[[]string](join)

		// Act
		feed(t, join.Lane(0), "A", "B", "C")
		feed(t, join.Lane(1), "X")

		// Assert
		td.Cmp(t, out.wait(t), [][]string{{"A", "X"}})
		waitDone(t, join)
		td.CmpNoError(t, join.Err())
		td.Cmp(t, join.Stranded(), 2)
	})

	t.Run("success_open_lane_keeps_join_pending", func(t *testing.T) {
		// Arrange
		join, err := flow.NewJoin[string](2, quiet())
		td.Require(t).CmpNoError(err)
		out := collect[[]string](join)

		// Act
		feed(t, join.Lane(0), "A", "B", "C")
		td.Require(t).CmpNoError(join.Lane(1).Send(context.Background(), "X"))

		// Assert
		td.CmpTrue(t, isPending(join, 50*time.Millisecond))
		join.Lane(1).Complete()
		td.Cmp(t, out.wait(t), [][]string{{"A", "X"}})
	})

	t.Run("success_positional_pairing_ignores_content", func(t *testing.T) {
		// Arrange
		join, err := flow.NewJoin[int](2, quiet())
		td.Require(t).CmpNoError(err)
		out := collect[[]int](join)

		// Act
		feed(t, join.Lane(1), 30, 10, 20)
		feed(t, join.Lane(0), 1, 2, 3)

		// Assert
		td.Cmp(t, out.wait(t), [][]int{{1, 30}, {2, 10}, {3, 20}})
		td.Cmp(t, join.Stranded(), 0)
	})

	t.Run("success_three_lanes", func(t *testing.T) {
		// Arrange
		join, err := flow.NewJoin[int](3, quiet())
		td.Require(t).CmpNoError(err)
		out := collect[[]int](join)

		// Act
		feed(t, join.Lane(2), 7, 8)
		feed(t, join.Lane(0), 1, 2, 3)
		feed(t, join.Lane(1), 4, 5, 6)

		// Assert
		td.Cmp(t, join.Lanes(), 3)
		td.Cmp(t, out.wait(t), [][]int{{1, 4, 7}, {2, 5, 8}})
		td.Cmp(t, join.Stranded(), 2)
	})

	t.Run("error_send_after_completion", func(t *testing.T) {
		// Arrange
		join, err := flow.NewJoin[int](2, quiet())
		td.Require(t).CmpNoError(err)

		// Act
		join.Complete()

		// Assert
		waitDone(t, join)
		td.CmpErrorIs(t, join.Lane(0).Send(context.Background(), 1), flow.ErrDeclined)
		td.CmpErrorIs(t, join.Lane(1).Send(context.Background(), 1), flow.ErrDeclined)
	})

	t.Run("error_fault_through_lane", func(t *testing.T) {
		// Arrange
		join, err := flow.NewJoin[int](2, quiet(), flow.WithName("j"))
		td.Require(t).CmpNoError(err)

		// Act
		join.Lane(1).Fault(errBoom)

		// Assert
		waitDone(t, join)
		td.CmpErrorIs(t, join.Err(), errBoom)
		td.Cmp(t, join.Lane(1).Name(), "j[1]")
		td.CmpErrorIs(t, join.Lane(0).Send(context.Background(), 1), flow.ErrDeclined)
	})
}

func TestKeyedJoin(t *testing.T) {
	type item struct {
		key   string
		value int
	}
	byKey := func(i item) string { return i.key }

	t.Run("success_pairs_by_key", func(t *testing.T) {
		// Arrange
		join, err := flow.NewKeyedJoin(2, byKey, quiet())
		td.Require(t).CmpNoError(err)
		out := collect[[]item](join)

		// Act
		feed(t, join.Lane(0), item{"a", 1}, item{"b", 2}, item{"c", 3})
		feed(t, join.Lane(1), item{"c", 30}, item{"a", 10}, item{"b", 20})

		// Assert
		td.Cmp(t, out.wait(t), [][]item{
			{{"c", 3}, {"c", 30}},
			{{"a", 1}, {"a", 10}},
			{{"b", 2}, {"b", 20}},
		})
	})

	t.Run("success_unmatched_keys_are_stranded", func(t *testing.T) {
		// Arrange
		join, err := flow.NewKeyedJoin(2, byKey, quiet())
		td.Require(t).CmpNoError(err)
		out := collect[[]item](join)

		// Act
		feed(t, join.Lane(0), item{"a", 1}, item{"b", 2})
		feed(t, join.Lane(1), item{"b", 20}, item{"z", 0})

		// Assert
		td.Cmp(t, out.wait(t), [][]item{{{"b", 2}, {"b", 20}}})
		td.Cmp(t, join.Stranded(), 2)
	})

	t.Run("error_duplicate_key_on_lane", func(t *testing.T) {
		// Arrange
		join, err := flow.NewKeyedJoin(2, byKey, quiet())
		td.Require(t).CmpNoError(err)
		lane := join.Lane(0)
		td.Require(t).CmpNoError(lane.Send(context.Background(), item{"a", 1}))

		// Act
		err = lane.Send(context.Background(), item{"a", 2})

		// Assert
		td.CmpErrorIs(t, err, flow.ErrDuplicateKey)
		join.Complete()
		waitDone(t, join)
	})

	t.Run("error_invalid_lane_count", func(t *testing.T) {
		// Act
		_, err := flow.NewKeyedJoin(1, byKey, quiet())

		// Assert
		td.CmpErrorIs(t, err, flow.ErrInvalidBranchCount)
	})
}
