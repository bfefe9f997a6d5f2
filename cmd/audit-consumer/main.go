package main

import (
	"github.com/corray333/backend-labs/orderddd/internal/app"
	"github.com/corray333/backend-labs/orderddd/internal/config"
)

func main() {
	config.MustInit("/etc/audit-consumer")
	app.MustNewAuditApp().Run()
}
