// Command authservicesapid runs the multi-tenant auth service: a REST
// API in front of a Cassandra-backed store of organizations, users,
// password resets, and login sessions.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
