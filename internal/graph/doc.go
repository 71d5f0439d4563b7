// Package graph turns a task list into a Graphviz dependency graph and
// renders it to image files.
//
// Every task becomes one node keyed by its id. Every entry of a task's
// dependency list becomes one edge from the dependency to the task, in list
// order and with repeats kept. References to ids that are not in the list
// still produce edges; Graphviz draws a placeholder node for them.
//
// Rendering lays the graph out with an external backend (the Graphviz dot
// binary by default) and replaces each output file atomically, so a failed
// render never clobbers the previous image.
package graph
