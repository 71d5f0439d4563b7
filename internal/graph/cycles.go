package graph

import (
	"strconv"

	"github.com/ldi/taskgraph/pkg/models"
)

// FindCycles returns the dependency cycles reachable in list, each as the
// sequence of task ids along the cycle in edge direction (dependency first).
// Rendering does not depend on the result; cycles are drawn as declared.
func FindCycles(list []models.Task) [][]string {
	// dependents[a] lists the tasks that depend on a, in input order.
	dependents := make(map[string][]string, len(list))
	order := make([]string, 0, len(list))
	for _, t := range list {
		id := strconv.Itoa(t.ID)
		order = append(order, id)
		for _, dep := range t.Dependencies {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	// Classic three-colour DFS: permanent nodes are fully explored, nodes on
	// the stack are in the current path.
	permanent := make(map[string]bool)
	onStack := make(map[string]int)
	var stack []string
	var cycles [][]string
	reported := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		if permanent[id] {
			return
		}
		if pos, ok := onStack[id]; ok {
			cycle := append([]string(nil), stack[pos:]...)
			if key := cycleKey(cycle); !reported[key] {
				reported[key] = true
				cycles = append(cycles, cycle)
			}
			return
		}

		onStack[id] = len(stack)
		stack = append(stack, id)
		for _, next := range dependents[id] {
			visit(next)
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
		permanent[id] = true
	}

	for _, id := range order {
		visit(id)
	}
	return cycles
}

// cycleKey identifies a cycle independent of its starting node.
func cycleKey(cycle []string) string {
	start := 0
	for i, id := range cycle {
		if id < cycle[start] {
			start = i
		}
	}
	key := ""
	for i := range cycle {
		key += cycle[(start+i)%len(cycle)] + ">"
	}
	return key
}
