// Command irag is the entry point for the interviewly retrieval engine.
// It indexes resumes and job descriptions into a vector store and answers
// similarity queries, either from the CLI or over an HTTP API (`irag serve`).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/interviewly-rag/cmd/irag/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
