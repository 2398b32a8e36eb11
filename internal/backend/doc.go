// Package backend описывает исполнителей автоматизаций.
//
// Автоматизация указывает либо CodeRef — имя обработчика в Registry,
// либо ProcessName — имя процесса для ProcessRunner. Сами исполнители —
// произвольный код встраивающего приложения; поллер умеет только
// найти их и вызвать.
package backend
