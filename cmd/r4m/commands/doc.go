// Package commands defines the r4m CLI.
//
// Commands
//
//   - login      Log accounts in now, prompting for one-time codes if needed
//   - schedule   Refresh sessions on the configured cron schedule
//   - history    List recent login attempts
//   - open       Open the config file or the sessions directory
//   - bot-test   Open bot.sannysoft.com with the stealth browser options
//
// The root command loads the config and the logger before any subcommand
// runs. Commands that drive a browser build their own app.App.
package commands
