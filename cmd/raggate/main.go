/*
 * @date: 2026.10.16
 * @description: raggate 命令行入口
 * @func: serve / worker / migrate / init-perms / invite
 */

package main

func main() {
	Execute()
}
