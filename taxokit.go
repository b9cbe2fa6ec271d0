package taxokit

// Version of the toolkit.
const Version = "0.2.1"

// AppName is used to derive cache and data directories.
const AppName = "taxokit"
