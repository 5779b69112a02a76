/*
Package listfile reads and writes the plain line-oriented text files cidrscope
deals with: CIDR lists, hostname lists, and result files.
*/
package listfile
