package main

import (
	"go.uber.org/fx"

	"github.com/bazaarlabs/bazaar/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
