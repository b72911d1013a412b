// Muisti - Resource Telemetry Memory Engine
// Ingest. Remember. Answer.
package main

func main() {
	Execute()
}
