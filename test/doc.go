/*
Package test provides test fixtures shared by the cidrscope package tests, most
notably fake resolver executables standing in for dnsprobe.
*/
package test
