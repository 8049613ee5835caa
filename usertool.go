//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

const userToolDoc = `Tweetapp Account Tool

Usage:
  user_tool -l
  user_tool -a <username> <email> <password>
  user_tool -s <username>...
  user_tool -h
Options:
  -h            Show this screen.
  -l            List all accounts to STDOUT.
  -a            Add an account directly.
  -s            Revoke all sessions of the given accounts.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(userToolDoc)
		return
	}

	path := os.Getenv("DATABASE")
	if path == "" {
		path = "/tmp/tweetapp.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't open database: %s\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch os.Args[1] {
	case "-h":
		fmt.Println(userToolDoc)
	case "-l":
		rows, err := db.Query("SELECT account_id, username, email, created_at FROM account ORDER BY account_id")
		if err != nil {
			fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var username, email, createdAt string
			rows.Scan(&id, &username, &email, &createdAt)
			fmt.Printf("%d,%s,%s,%s\n", id, username, email, createdAt)
		}
	case "-a":
		if len(os.Args) != 5 {
			fmt.Println(userToolDoc)
			os.Exit(1)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[4]), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Hash error: %s\n", err)
			os.Exit(1)
		}
		_, err = db.Exec("INSERT INTO account (username, email, pw_hash) VALUES (?, ?, ?)",
			os.Args[2], os.Args[3], string(hash))
		if err != nil {
			fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added account: %s\n", os.Args[2])
	case "-s":
		for _, name := range os.Args[2:] {
			res, err := db.Exec(
				"DELETE FROM session WHERE account_id IN (SELECT account_id FROM account WHERE username = ?)", name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
				continue
			}
			n, _ := res.RowsAffected()
			fmt.Printf("Revoked %d session(s) for: %s\n", n, name)
		}
	default:
		fmt.Println(userToolDoc)
	}
}
