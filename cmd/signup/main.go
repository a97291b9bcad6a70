package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"campusblog/pkg/logger"
	"campusblog/pkg/signup"
)

// terminal prints what the signup page would show.
type terminal struct {
	done chan struct{}
}

func (t terminal) ShowAlert(kind, msg string) {
	fmt.Printf("[%s] %s\n", kind, msg)
}

func (t terminal) Assign(path string) {
	fmt.Println("navigate to", path)
	close(t.done)
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	name := flag.String("name", "", "full name")
	email := flag.String("email", "", "email")
	password := flag.String("password", "", "password")
	confirm := flag.String("confirm", "", "password confirmation, defaults to -password")
	flag.Parse()

	logger.Run("warn")
	if *confirm == "" {
		*confirm = *password
	}

	term := terminal{done: make(chan struct{})}
	c := signup.NewClient(*addr, term, term)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.Signup(ctx, *name, *email, *password, *confirm); err != nil {
		os.Exit(1)
	}

	select {
	case <-term.done:
	case <-ctx.Done():
		os.Exit(1)
	}
}
