/*
Package queue provides the dispatch substrate used to grow and query
trees: units of work are spawned on a Queue, run by a bounded set of
workers, and their results are collected by joining the Future each
spawn returns.
*/
package queue
