// Command hdictl inspects and exercises the HDI broker: it resolves and loads
// implementation libraries and talks to the service manager.
package main

func main() {
	Execute()
}
