/*
Package report renders cidrscope's console output: tagged "[ERROR]", "[WARN]",
and "[INFO]" messages, as well as the final list of in-scope hostnames.
*/
package report
