package main

// @title           Paybridge API
// @version         1.0
// @description     Subscription, payout and webhook backend for the mobile payments app.
// @termsOfService  http://example.com/terms/

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app"
)

func main() {
	os.Exit(run())
}

// run starts the app, blocks until fx sees SIGINT/SIGTERM and then stops it.
func run() int {
	// The app logger may not exist yet when start fails.
	fallback := zap.NewExample().Sugar()

	a := fx.New(app.Module, fx.StartTimeout(app.DefaultStartTimeout), fx.StopTimeout(app.DefaultStopTimeout))

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancelStart()
	if err := a.Start(startCtx); err != nil {
		fallback.Errorw("app_start_failed", "err", err)
		return 1
	}

	sig := <-a.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		fallback.Errorw("app_stop_failed", "err", err)
		return 1
	}
	return sig.ExitCode
}
