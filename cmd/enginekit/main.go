// Package main is the entry point for the enginekit demo host. It composes
// a couple of sample units into one application to exercise the runtime:
// layered paths, ordered boot, mounted routes, and the task surface.
package main

func main() {
	Execute()
}
