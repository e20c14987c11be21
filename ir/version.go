package ir

// Version is the spider library version reported by the CLI.
const Version = "0.1.0"
