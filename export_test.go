package auth

var DummyHash = dummyHash
