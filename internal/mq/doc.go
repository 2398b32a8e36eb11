// Package mq публикует события жизненного цикла автоматизаций в RabbitMQ.
//
// Публикация опциональна: поллер принимает nil *Publisher и тогда
// просто не публикует события. Поведение самого планировщика никогда
// не зависит от доступности брокера — события нужны только внешним
// потребителям (аудит, дашборды).
package mq
