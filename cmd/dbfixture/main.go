package main

import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nu0ma/dbfixture/cmd"
)

func main() {
	cmd.Execute()
}
