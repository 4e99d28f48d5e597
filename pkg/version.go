package omo

// Version is the current omo release.
const Version = "0.1.0"
