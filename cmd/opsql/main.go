// Command opsql runs JavaScript programs that use SQLite databases through
// host objects, and offers direct helpers for the same databases.
package main

func main() {
	execute()
}
