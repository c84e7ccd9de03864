/*
Package ngram builds n-gram language models from plain text and walks them to
produce new passages.

A Model is built in one pass: the text is tokenized (sentence punctuation
becomes the sentinel tokens <PERIOD>, <EXCL> and <Q>), successor frequencies
are counted for every window of one, two or three tokens, the counts are
normalized into probabilities rounded to two decimals, and keys and successors
are put into a canonical order. A built Model is never modified; changing the
text or the order means building a new one.

Generation comes in two flavours. Generate runs a Walker to completion,
stopping at a word limit or a dead end. A Session is driven one step at a time
by an external controller that picks among the current options or asks for a
random pick.

All randomness flows through a Sampler, which can be seeded for reproducible
output.
*/
package ngram
