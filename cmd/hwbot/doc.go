// Command hwbot polls the homework statuses API and reports status changes
// to a Telegram chat.
//
// Credentials come from the environment (PRACTICUM_TOKEN, TELEGRAM_TOKEN,
// TELEGRAM_CHAT_ID), optionally through a .env file. Everything else lives in
// config.yaml, which may be absent.
//
//	hwbot                 run the daemon
//	hwbot check           run one poll iteration and exit
//	hwbot config validate check configuration and credentials
//	hwbot notify test     send a test message to the chat
package main
