/*
Package toyc contains types shared across the compiler's sub-packages:
source positions and the token abstraction produced by package lexer and
consumed by package parser.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package toyc
