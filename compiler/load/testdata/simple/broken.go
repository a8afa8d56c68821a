package simple

var count int = "many"
